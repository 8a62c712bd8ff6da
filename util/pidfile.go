package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	ps "github.com/mitchellh/go-ps"
)

// IsRunningInOtherProcess returns true if the pid file at pathToFile
// contains the pid of some other process that is still running.
func IsRunningInOtherProcess(pathToFile string) bool {
	if FileExists(pathToFile) {
		pid := ReadPidFile(pathToFile)
		return pid != 0 && pid != os.Getpid() && ProcessIsRunning(pid)
	}
	return false
}

// ReadPidFile returns the pid from the speficied file.
func ReadPidFile(pathToFile string) int {
	if data, err := os.ReadFile(pathToFile); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			return pid
		}
	}
	return 0
}

// WritePidFile writes this process' pid to the specified file.
func WritePidFile(pathToFile string) error {
	pidStr := strconv.Itoa(os.Getpid())
	return os.WriteFile(pathToFile, []byte(pidStr), 0664)
}

// DeletePidFile deletes the specified pid file, if it looks safe to delete.
func DeletePidFile(pathToFile string) error {
	if LooksSafeToDelete(pathToFile, 12, 2) {
		return os.Remove(pathToFile)
	}
	return fmt.Errorf("Pid file %s does not look safe to delete", pathToFile)
}

// AgeOfPidFile returns the duration of time that has passed since
// the pid file was last modified.
func AgeOfPidFile(pathToFile string) (time.Duration, error) {
	fileStat, err := os.Stat(pathToFile)
	if err != nil {
		return 0, err
	}
	return time.Since(fileStat.ModTime()), nil
}

// ProcessIsRunning returns true if the process with pid is running.
// This uses go-ps internally because golang's os.FindProcess always
// returns a process on *nix, even when no process with that pid is
// running.
func ProcessIsRunning(pid int) bool {
	proc, _ := ps.FindProcess(pid)
	return proc != nil
}

// AcquirePidLock creates pathToFile containing our pid. If the file
// already exists and names another live process, the lock is held and
// we return an error. A file left by a dead process is replaced.
func AcquirePidLock(pathToFile string) error {
	for attempt := 0; attempt < 2; attempt++ {
		err := createPidFile(pathToFile)
		if err == nil || !os.IsExist(err) {
			return err
		}
		if ReadPidFile(pathToFile) == os.Getpid() {
			return nil
		}
		if IsRunningInOtherProcess(pathToFile) {
			age, _ := AgeOfPidFile(pathToFile)
			return fmt.Errorf("Process %d has held lock file %s for %s",
				ReadPidFile(pathToFile), pathToFile, age.Round(time.Second))
		}
		if err := os.Remove(pathToFile); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return fmt.Errorf("Could not acquire lock file %s", pathToFile)
}

// createPidFile writes our pid to a temp file and links it to
// pathToFile. The link fails if pathToFile exists, and other processes
// never see the file without a pid in it.
func createPidFile(pathToFile string) error {
	tempFile := fmt.Sprintf("%s.%d.tmp", pathToFile, os.Getpid())
	if err := WritePidFile(tempFile); err != nil {
		return err
	}
	defer os.Remove(tempFile)
	return os.Link(tempFile, pathToFile)
}

// ReleasePidLock deletes pathToFile if it holds our own pid.
func ReleasePidLock(pathToFile string) error {
	if ReadPidFile(pathToFile) != os.Getpid() {
		return nil
	}
	return DeletePidFile(pathToFile)
}

package constants

import "fmt"

const (
	AnalysisLevelGroup       = "group"
	AnalysisLevelParticipant = "participant"
	DefaultOutputMount       = "/output"
	DefaultDatasetMount      = "/bids_dataset"
	DefaultS3CfgTemplate     = "/etc/generic-msi.s3cfg"
	DefaultS3Host            = "s3.amazonaws.com"
	DefaultShell             = "/bin/sh"
	DefaultWorkDir           = "/data"
	HostingDocker            = "docker"
	HostingSingularity       = "singularity"
	PidFileName              = ".bids-wrapper.pid"
	RegistryDocker           = "docker://"
	RegistryShub             = "shub://"
	RegistrySingularity      = "singularity://"
	S3CfgFileName            = ".s3cfg"
	S3CfgModeDirect          = "direct"
	S3CfgModeTemplate        = "template"
	SchemeShub               = "shub"
	SchemeSingularity        = "singularity"
)

// ExitCodePartialSync is the s3cmd exit status for a sync that copied
// some, but not all, files.
const ExitCodePartialSync = 2

// Pipeline step names. These are also the field names under which
// step results are stored in Redis.
const (
	StepConfigureCredentials = "configure_credentials"
	StepNotify               = "notify"
	StepPullImage            = "pull_image"
	StepRunApp               = "run_app"
	StepStageInput           = "stage_input"
	StepSyncOutput           = "sync_output"
)

var Hostings = []string{
	HostingSingularity,
	HostingDocker,
}

var AnalysisLevels = []string{
	AnalysisLevelParticipant,
	AnalysisLevelGroup,
}

var S3CfgModes = []string{
	S3CfgModeTemplate,
	S3CfgModeDirect,
}

var SingularitySchemes = []string{
	SchemeShub,
	SchemeSingularity,
}

// Steps lists pipeline steps in execution order.
var Steps = []string{
	StepConfigureCredentials,
	StepPullImage,
	StepStageInput,
	StepRunApp,
	StepSyncOutput,
	StepNotify,
}

// RegistryFor returns the URI prefix singularity uses to pull an image
// from the given hosting service. The scheme setting applies only to
// singularity hosting; older deployments pull from singularity hub
// with shub://, newer ones with singularity://.
func RegistryFor(hosting, scheme string) (string, error) {
	switch hosting {
	case HostingDocker:
		return RegistryDocker, nil
	case HostingSingularity:
		switch scheme {
		case "", SchemeShub:
			return RegistryShub, nil
		case SchemeSingularity:
			return RegistrySingularity, nil
		}
		return "", fmt.Errorf("Unknown singularity registry scheme '%s'", scheme)
	}
	return "", fmt.Errorf("Unknown container hosting '%s'", hosting)
}

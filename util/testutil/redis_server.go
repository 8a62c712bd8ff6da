package testutil

import (
	"sort"

	"github.com/alicebob/miniredis/v2"
	"github.com/bids-apps/batch-wrapper/network"
)

// RedisServer is an in-memory stand-in for the Redis instance that
// holds job status.
type RedisServer struct {
	server *miniredis.Miniredis
}

// NewRedisServer starts a server on a random local port. It panics if
// the server can't start, since no test that asks for one can run
// without it.
func NewRedisServer() *RedisServer {
	server, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	return &RedisServer{
		server: server,
	}
}

func (s *RedisServer) Addr() string {
	return s.server.Addr()
}

// Client returns a job status client connected to this server.
func (s *RedisServer) Client() *network.RedisClient {
	return network.NewRedisClient(s.Addr(), "", 0)
}

// JobFields returns the sorted step names recorded for jobID,
// read straight from the server.
func (s *RedisServer) JobFields(jobID string) []string {
	fields, err := s.server.HKeys(network.JobKey(jobID))
	if err != nil {
		return nil
	}
	sort.Strings(fields)
	return fields
}

func (s *RedisServer) Close() {
	s.server.Close()
}

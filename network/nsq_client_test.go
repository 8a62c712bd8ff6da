package network_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bids-apps/batch-wrapper/models/service"
	"github.com/bids-apps/batch-wrapper/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSummary(t *testing.T) {
	var gotTopic string
	var gotSummary service.JobSummary
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pub", r.URL.Path)
		gotTopic = r.URL.Query().Get("topic")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotSummary)
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	client := network.NewNSQClient(server.URL)
	summary := &service.JobSummary{JobID: jobID, Succeeded: true}
	require.Nil(t, client.PublishSummary("bids_job_done", summary))
	assert.Equal(t, "bids_job_done", gotTopic)
	assert.Equal(t, jobID, gotSummary.JobID)
	assert.True(t, gotSummary.Succeeded)
}

func TestPublishSummaryBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("BAD_TOPIC"))
	}))
	defer server.Close()

	client := network.NewNSQClient(server.URL)
	err := client.PublishSummary("bids_job_done", &service.JobSummary{JobID: jobID})
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "BAD_TOPIC")
}

func TestPublishSummaryInvalidTopic(t *testing.T) {
	client := network.NewNSQClient("http://localhost:4151")
	err := client.PublishSummary("not a topic", &service.JobSummary{JobID: jobID})
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "Invalid NSQ topic")
}

func TestPublishSummaryNoServer(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	serverURL := server.URL
	server.Close()

	client := network.NewNSQClient(serverURL)
	err := client.PublishSummary("bids_job_done", &service.JobSummary{JobID: jobID})
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "Nsqd returned an error")
}

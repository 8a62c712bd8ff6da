package network

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bids-apps/batch-wrapper/models/service"
	"github.com/nsqio/go-nsq"
)

type NSQClient struct {
	URL        string
	httpClient *http.Client
}

// Formally define this so we can mock it in tests.
type NSQClientInterface interface {
	PublishSummary(topic string, summary *service.JobSummary) error
}

// NewNSQClient returns a new NSQ client that will post to the nsqd
// HTTP interface at url, which usually ends with :4151. This client
// only publishes. It never consumes.
func NewNSQClient(url string) *NSQClient {
	return &NSQClient{
		URL:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// PublishSummary posts the JSON form of a job summary to topic.
func (client *NSQClient) PublishSummary(topic string, summary *service.JobSummary) error {
	data, err := summary.ToJSON()
	if err != nil {
		return err
	}
	return client.publish(topic, data)
}

// publish posts data to the specified NSQ topic.
func (client *NSQClient) publish(topic string, data []byte) error {
	if !nsq.IsValidTopicName(topic) {
		return fmt.Errorf("Invalid NSQ topic name '%s'", topic)
	}
	pubURL := fmt.Sprintf("%s/pub?topic=%s", client.URL, url.QueryEscape(topic))
	resp, err := client.httpClient.Post(pubURL, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("Nsqd returned an error when publishing: %v", err)
	}

	// nsqd sends a simple OK. We have to read the response body,
	// or the connection will hang open forever.
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyText := "[no response body]"
		if len(body) > 0 {
			bodyText = string(body)
		}
		return fmt.Errorf("nsqd returned status code %d when attempting to publish. "+
			"Response body: %s", resp.StatusCode, bodyText)
	}
	return nil
}

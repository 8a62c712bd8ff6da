package network

import (
	"fmt"

	"github.com/bids-apps/batch-wrapper/models/service"
	"github.com/go-redis/redis/v7"
)

// RedisClient records the status of each step of a job in a Redis
// hash, so operators can see how far a batch job got without digging
// through CloudWatch logs.
type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(address, password string, db int) *RedisClient {
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
	}
}

// JobKey returns the key of the hash that holds a job's step results.
func JobKey(jobID string) string {
	return fmt.Sprintf("bids:%s", jobID)
}

func (c *RedisClient) Ping() (string, error) {
	return c.client.Ping().Result()
}

func (c *RedisClient) Close() error {
	return c.client.Close()
}

func (c *RedisClient) WorkResultGet(jobID, step string) (*service.WorkResult, error) {
	data, err := c.client.HGet(JobKey(jobID), step).Result()
	if err != nil {
		return nil, fmt.Errorf("WorkResultGet (%s, %s): %s",
			jobID, step, err.Error())
	}
	return service.WorkResultFromJSON(data)
}

// WorkResultGetAll returns all step results recorded for a job,
// keyed by step name.
func (c *RedisClient) WorkResultGetAll(jobID string) (map[string]*service.WorkResult, error) {
	data, err := c.client.HGetAll(JobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("WorkResultGetAll (%s): %s", jobID, err.Error())
	}
	results := make(map[string]*service.WorkResult, len(data))
	for step, jsonData := range data {
		result, err := service.WorkResultFromJSON(jsonData)
		if err != nil {
			return nil, fmt.Errorf("WorkResultGetAll (%s, %s): %s",
				jobID, step, err.Error())
		}
		results[step] = result
	}
	return results, nil
}

func (c *RedisClient) WorkResultSave(result *service.WorkResult) error {
	jsonData, err := result.ToJSON()
	if err != nil {
		return err
	}
	_, err = c.client.HSet(JobKey(result.JobID), result.Step, jsonData).Result()
	return err
}

// JobDelete removes all records for the job. AWS Batch retries reuse
// the job id, so each attempt starts by clearing the last one's steps.
func (c *RedisClient) JobDelete(jobID string) error {
	_, err := c.client.Del(JobKey(jobID)).Result()
	return err
}

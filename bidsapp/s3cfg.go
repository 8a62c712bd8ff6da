package bidsapp

import (
	"context"
	"fmt"
	"os"

	"github.com/bids-apps/batch-wrapper/constants"
	"github.com/bids-apps/batch-wrapper/models/common"
	"github.com/bids-apps/batch-wrapper/util"
)

// CredentialConfigurator writes the s3cmd config file that the sync
// step (and anything else in the BIDS container that uses s3cmd) reads.
type CredentialConfigurator struct {
	Base
}

func NewCredentialConfigurator(context *common.Context) *CredentialConfigurator {
	return &CredentialConfigurator{
		Base: Base{Context: context},
	}
}

func (c *CredentialConfigurator) Name() string {
	return constants.StepConfigureCredentials
}

func (c *CredentialConfigurator) Enabled() bool {
	return true
}

func (c *CredentialConfigurator) Run(ctx context.Context) error {
	path, err := c.Configure()
	if err == nil {
		c.Context.Logger.Infof("Wrote s3cmd config to %s", path)
	}
	return err
}

// Configure writes the s3cmd config and returns its path.
func (c *CredentialConfigurator) Configure() (string, error) {
	config := c.Config()
	if err := os.MkdirAll(config.HomeDir, 0755); err != nil {
		return "", common.NewError(fmt.Sprintf("Cannot create home dir %s", config.HomeDir), err, true)
	}
	path := config.S3CfgPath()
	var err error
	if config.S3CfgMode == constants.S3CfgModeDirect {
		err = WriteS3CfgDirect(path, config.AccessKey, config.SecretKey)
	} else {
		err = WriteS3CfgFromTemplate(config.S3CfgTemplate, path, config.AccessKey, config.SecretKey)
	}
	if err != nil {
		return "", common.NewError(fmt.Sprintf("Cannot write s3cmd config %s", path), err, true)
	}
	return path, nil
}

// WriteS3CfgFromTemplate copies the site s3cmd config at templatePath
// to destPath, then appends the access key and secret key. Note that
// this appends to the copy, not to an existing destPath, so each run
// starts from a fresh template.
func WriteS3CfgFromTemplate(templatePath, destPath, accessKey, secretKey string) error {
	if _, err := util.CopyFile(destPath, templatePath, 0600); err != nil {
		return err
	}
	if err := os.Chmod(destPath, 0600); err != nil {
		return err
	}
	f, err := os.OpenFile(destPath, os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(credentialLines(accessKey, secretKey)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteS3CfgDirect writes an s3cmd config to destPath that contains
// only the credentials, overwriting whatever was there.
func WriteS3CfgDirect(destPath, accessKey, secretKey string) error {
	data := "[default]\n" + credentialLines(accessKey, secretKey)
	return os.WriteFile(destPath, []byte(data), 0600)
}

func credentialLines(accessKey, secretKey string) string {
	return fmt.Sprintf("access_key = %s\nsecret_key = %s\n", accessKey, secretKey)
}

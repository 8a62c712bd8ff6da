package bidsapp

import (
	"context"

	"github.com/bids-apps/batch-wrapper/constants"
	"github.com/bids-apps/batch-wrapper/models/common"
	"github.com/bids-apps/batch-wrapper/util"
)

// SingularityBinary is the container runtime we shell out to. We pull
// with singularity even for docker-hosted images.
const SingularityBinary = "singularity"

// ImageFetcher pulls the BIDS app container from its registry.
type ImageFetcher struct {
	Base
}

func NewImageFetcher(context *common.Context, runner Runner) *ImageFetcher {
	return &ImageFetcher{
		Base: Base{Context: context, Runner: runner},
	}
}

func (f *ImageFetcher) Name() string {
	return constants.StepPullImage
}

func (f *ImageFetcher) Enabled() bool {
	return true
}

func (f *ImageFetcher) Run(ctx context.Context) error {
	command, err := f.Command()
	if err != nil {
		return err
	}
	return f.Runner.Run(ctx, command, nil)
}

// Command returns the pull command, for example
// "singularity pull shub://org/app:tag".
func (f *ImageFetcher) Command() (string, error) {
	uri, err := ImageURI(f.Config())
	if err != nil {
		return "", err
	}
	return util.ShellJoin(SingularityBinary, "pull", uri), nil
}

// ImageURI returns the registry URI of the BIDS app container.
func ImageURI(config *common.Config) (string, error) {
	registry, err := constants.RegistryFor(config.ContainerHosting, config.RegistryScheme)
	if err != nil {
		return "", common.NewError(err.Error(), err, true)
	}
	return registry + config.Container, nil
}

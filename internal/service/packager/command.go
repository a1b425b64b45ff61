package packager

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/smart-dial/internal/config"
	"github.com/oshokin/smart-dial/internal/logger"
	"github.com/oshokin/smart-dial/internal/service/update"
)

// Options carries the packager inputs.
type Options struct {
	// ConfigPath is an optional path to persist settings (defaults to
	// the standard settings filename).
	ConfigPath string
	// UpdateURL is the URL where release artifacts will be uploaded.
	UpdateURL string
}

// packager prepares release metadata for distribution.
// It is unexported, callers should use Run.
type packager struct {
	// cfg holds the settings carrying the update URL.
	cfg *config.Config
	// desc is the manifest being built.
	desc *update.Description
}

// errUpdaterRunning indicates packaging was attempted while an updater
// is swapping files in this directory.
var errUpdaterRunning = errors.New("an updater is running in this directory")

// Run builds a release from the artifacts in the working directory.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "dial-packager")

	cfg := &config.Config{UpdateURL: opts.UpdateURL}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	pkg, err := newPackager(ctx, opts.ConfigPath, cfg)
	if err != nil {
		return fmt.Errorf("initialize packager: %w", err)
	}

	if err = pkg.run(ctx); err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	logger.Info(ctx, "Release is ready")

	return nil
}

// newPackager saves the settings that point controllers at the release
// folder and prepares an empty manifest.
func newPackager(ctx context.Context, configFilename string, settings *config.Config) (*packager, error) {
	running, err := update.IsUpdaterRunningNow(ctx)
	if err != nil {
		return nil, err
	}

	if running {
		return nil, errUpdaterRunning
	}

	if err = config.Save(configFilename, settings); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	return &packager{
		cfg:  settings,
		desc: update.NewDescription(),
	}, nil
}

// run populates and writes the release manifest to disk.
func (p *packager) run(ctx context.Context) error {
	logger.Info(ctx, "Preparing release description")

	if err := p.fillDescription(); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Saving release description", "path", update.VersionFilename)

	if err := p.saveDescription(); err != nil {
		return err
	}

	p.printNextSteps(ctx)

	return nil
}

// fillDescription checksums every release artifact into the manifest.
// A missing binary fails the run, half a release is worse than none.
func (p *packager) fillDescription() error {
	for _, fileName := range update.ReleaseArtifacts() {
		if _, err := os.Stat(fileName); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", fileName, os.ErrNotExist)
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", fileName, err)
		}

		checksum, err := update.GetFileChecksum(fileName)
		if err != nil {
			return err
		}

		p.desc.Files[fileName] = base64.StdEncoding.EncodeToString(checksum)
	}

	return nil
}

// saveDescription writes the manifest to the standard version filename.
func (p *packager) saveDescription() error {
	contents, err := yaml.Marshal(p.desc)
	if err != nil {
		return err
	}

	return os.WriteFile(update.VersionFilename, contents, update.DefaultFileMode)
}

// printNextSteps logs human-readable guidance for publishing the release.
func (p *packager) printNextSteps(ctx context.Context) {
	files := make([]string, 0, len(p.desc.Files)+1)
	for fileName := range p.desc.Files {
		files = append(files, fileName)
	}

	files = append(files, update.VersionFilename)
	sort.Strings(files)

	var builder strings.Builder

	builder.WriteString("You should upload the following files to ")
	builder.WriteString(p.cfg.UpdateURL)
	builder.WriteString(":\n")
	builder.WriteString(strings.Join(files, ",\n"))
	builder.WriteString("\n\nOn each controller, schedule the command: ")
	builder.WriteString(update.UpdaterExecutable)

	logger.Info(ctx, builder.String())
}

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/jlsite/internal/dagger"
)

// Build and return directory of go binaries
func (j *Jlsite) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	// go-sqlite3 needs cgo, so each architecture builds natively in its own
	// platform container rather than cross compiling.
	goarches := []string{"amd64", "arm64"}

	// create empty directory to put build artifacts
	outputs := dag.Directory()

	for _, goarch := range goarches {
		path := fmt.Sprintf("linux/%s/", goarch)

		build := j.goContainer(dagger.Platform("linux/"+goarch)).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/jlsite"})

		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	// return build directory
	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (j *Jlsite) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/jlsoftware/jlsite/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/jlsoftware/jlsite/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/jlsoftware/jlsite/pkg/utils.Buildtime=%s'", buildtime),
	}

	return j.Build(ctx, strings.Join(ldflags, " "))
}

// Container packages the linux/amd64 binary into a slim runtime image that
// serves the API on port 8081.
func (j *Jlsite) Container(
	ctx context.Context,

	// Version string of build
	// +optional
	// +default="dev"
	version string,

	// Git commit SHA of build
	// +optional
	// +default="HEAD"
	commit string,
) *dagger.Container {
	bin := j.BuildRelease(ctx, version, commit).File("linux/amd64/jlsite")

	return dag.Container(dagger.ContainerOpts{Platform: "linux/amd64"}).
		From("debian:bookworm-slim").
		WithExec([]string{"sh", "-c", "apt-get update && apt-get install -y ca-certificates libsqlite3-0 && rm -rf /var/lib/apt/lists/*"}).
		WithFile("/usr/local/bin/jlsite", bin).
		WithEnvVariable("JLSITE_SERVER_LISTEN", ":8081").
		WithEnvVariable("JLSITE_STORAGE_SQLITE_PATH", "/data/jlsite.db").
		WithExposedPort(8081).
		WithEntrypoint([]string{"jlsite"}).
		WithDefaultArgs([]string{"serve", "--config-dir", "/data"})
}

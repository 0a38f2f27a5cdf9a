package main

import (
	"context"
	"fmt"
	"path"
	"strings"

	"dagger/jlsite/internal/dagger"
)

// bucketRoot is the top level prefix every jlsite artifact lives under.
const bucketRoot = "jlsite"

type uploadOpts struct {
	// Directory containing release archives to upload
	artifacts *dagger.Directory

	// Path under bucketRoot (e.g., "v1.0.0", "latest" or "nightly")
	prefix string

	// Bucket endpoint URL
	endpoint *dagger.Secret

	// Bucket name
	bucket *dagger.Secret

	// Bucket access key ID
	accessKeyId *dagger.Secret

	// Bucket secret access key
	secretAccessKey *dagger.Secret
}

// Package archives the release binaries as jlsite_<version>_linux_<arch>.tar.gz
// next to a SHA256SUMS file.
func (j *Jlsite) Package(
	ctx context.Context,

	// Version string (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,
) *dagger.Directory {
	bins := j.BuildRelease(ctx, version, commit)

	var script strings.Builder
	script.WriteString("set -e; mkdir -p /dist; ")
	for _, goarch := range []string{"amd64", "arm64"} {
		fmt.Fprintf(&script,
			"tar -C /bin-in/linux/%[1]s -czf /dist/jlsite_%[2]s_linux_%[1]s.tar.gz jlsite; ",
			goarch, version,
		)
	}
	script.WriteString("cd /dist && sha256sum *.tar.gz > SHA256SUMS")

	return dag.Container().
		From("debian:bookworm-slim").
		WithDirectory("/bin-in", bins).
		WithExec([]string{"sh", "-c", script.String()}).
		Directory("/dist")
}

// upload syncs release archives to <bucket>/jlsite/<prefix>.
func (j *Jlsite) upload(
	ctx context.Context,
	opts *uploadOpts,
) error {
	bucketName, err := opts.bucket.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket name: %w", err)
	}

	endpointUrl, err := opts.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get endpoint: %w", err)
	}

	destination := fmt.Sprintf("s3://%s", path.Join(bucketName, bucketRoot, opts.prefix))

	_, err = dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", opts.accessKeyId).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", opts.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", opts.artifacts).
		WithWorkdir("/artifacts").
		WithExec([]string{
			"aws", "s3", "sync", ".",
			destination,
			"--endpoint-url", endpointUrl,
			"--delete",
		}).
		Sync(ctx)
	if err != nil {
		return fmt.Errorf("failed to upload %s artifacts: %w", opts.prefix, err)
	}

	return nil
}

// ReleaseLatest packages a tagged release and publishes it under both its
// version and "latest".
func (j *Jlsite) ReleaseLatest(
	ctx context.Context,

	// Version string (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucket *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	if !strings.HasPrefix(version, "v") {
		return nil, fmt.Errorf("release version must look like v1.2.3, got %q", version)
	}

	artifacts := j.Package(ctx, version, commit)
	for _, prefix := range []string{version, "latest"} {
		err := j.upload(ctx, &uploadOpts{
			artifacts:       artifacts,
			prefix:          prefix,
			endpoint:        endpoint,
			bucket:          bucket,
			accessKeyId:     accessKeyId,
			secretAccessKey: secretAccessKey,
		})
		if err != nil {
			return artifacts, err
		}
	}

	return artifacts, nil
}

// Nightly packages the current commit and publishes it under "nightly".
func (j *Jlsite) Nightly(
	ctx context.Context,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucket *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts := j.Package(ctx, "nightly", commit)
	err := j.upload(ctx, &uploadOpts{
		artifacts:       artifacts,
		prefix:          "nightly",
		endpoint:        endpoint,
		bucket:          bucket,
		accessKeyId:     accessKeyId,
		secretAccessKey: secretAccessKey,
	})
	return artifacts, err
}

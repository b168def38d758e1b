// Copyright (c) 2025, DICE Research Group.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package oci

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/distribution/reference"
	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
)

// ArtifactType is the media type of recipectl package artifacts.
const ArtifactType = "application/vnd.dice-research.recipectl.package"

// Manifest annotations identifying the package.
const (
	AnnotationPackageName    = "org.dice-research.recipectl.package.name"
	AnnotationPackageVersion = "org.dice-research.recipectl.package.version"
	AnnotationPackageID      = "org.dice-research.recipectl.package.id"
)

// StoreDirName is the OCI image layout directory created below OutputDir.
const StoreDirName = "oci-layout"

// Annotations returns the manifest annotations for a package.
func Annotations(name, version, packageID string) map[string]string {
	return map[string]string{
		ociv1.AnnotationTitle:    name,
		ociv1.AnnotationVersion:  version,
		AnnotationPackageName:    name,
		AnnotationPackageVersion: version,
		AnnotationPackageID:      packageID,
	}
}

// PackageOptions configures local OCI packaging.
type PackageOptions struct {
	// SourceDir is the staged package directory.
	SourceDir string
	// OutputDir receives the OCI image layout. It must not lie inside SourceDir.
	OutputDir string
	// Registry and Repository only shape the reported reference.
	Registry   string
	Repository string
	// Tag names the manifest in the layout.
	Tag string
	// Annotations are added to the manifest.
	Annotations map[string]string
	// ReproducibleTimestamp pins the created annotation.
	ReproducibleTimestamp string
}

// PackageResult describes a packaged artifact.
type PackageResult struct {
	Digest    string `json:"digest" yaml:"digest"`
	Reference string `json:"reference" yaml:"reference"`
	StorePath string `json:"storePath" yaml:"storePath"`
}

// Package packs SourceDir as a single gzip layer artifact into an OCI image
// layout under OutputDir.
func Package(ctx context.Context, opts PackageOptions) (*PackageResult, error) {
	if opts.Tag == "" {
		return nil, errors.New("tag is required for OCI packaging")
	}
	if opts.Registry == "" {
		return nil, errors.New("registry is required for OCI packaging")
	}
	if opts.Repository == "" {
		return nil, errors.New("repository is required for OCI packaging")
	}

	absSource, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source directory: %w", err)
	}
	absOutput, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if absOutput == absSource || strings.HasPrefix(absOutput, absSource+string(filepath.Separator)) {
		return nil, fmt.Errorf("output directory %s must not be inside source directory %s", absOutput, absSource)
	}

	refString := fmt.Sprintf("%s/%s:%s", stripProtocol(opts.Registry), opts.Repository, opts.Tag)
	if _, parseErr := reference.ParseNormalizedNamed(refString); parseErr != nil {
		return nil, fmt.Errorf("invalid image reference '%s': %w", refString, parseErr)
	}

	fs, err := file.New(absSource)
	if err != nil {
		return nil, fmt.Errorf("failed to create file store: %w", err)
	}
	defer func() { _ = fs.Close() }()
	fs.TarReproducible = true

	layerDesc, err := fs.Add(ctx, ".", ociv1.MediaTypeImageLayerGzip, absSource)
	if err != nil {
		return nil, fmt.Errorf("failed to add source directory to store: %w", err)
	}

	annotations := make(map[string]string, len(opts.Annotations)+1)
	for k, v := range opts.Annotations {
		annotations[k] = v
	}
	if opts.ReproducibleTimestamp != "" {
		annotations[ociv1.AnnotationCreated] = opts.ReproducibleTimestamp
	}

	manifestDesc, err := oras.PackManifest(ctx, fs, oras.PackManifestVersion1_1, ArtifactType,
		oras.PackManifestOptions{
			Layers:              []ociv1.Descriptor{layerDesc},
			ManifestAnnotations: annotations,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to pack manifest: %w", err)
	}
	if tagErr := fs.Tag(ctx, manifestDesc, opts.Tag); tagErr != nil {
		return nil, fmt.Errorf("failed to tag manifest in file store: %w", tagErr)
	}

	storePath := filepath.Join(absOutput, StoreDirName)
	store, err := oci.New(storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCI layout: %w", err)
	}
	desc, err := oras.Copy(ctx, fs, opts.Tag, store, opts.Tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to copy artifact into OCI layout: %w", err)
	}

	return &PackageResult{
		Digest:    desc.Digest.String(),
		Reference: refString,
		StorePath: storePath,
	}, nil
}

// PushOptions configures a push to a remote registry.
type PushOptions struct {
	Registry   string
	Repository string
	Tag        string
	// PlainHTTP uses HTTP instead of HTTPS.
	PlainHTTP bool
	// InsecureTLS skips certificate verification.
	InsecureTLS bool
}

// PushResult describes a pushed artifact.
type PushResult struct {
	Digest    string `json:"digest" yaml:"digest"`
	Reference string `json:"reference" yaml:"reference"`
}

// PushFromStore copies the manifest tagged opts.Tag from the OCI layout at
// storePath to the remote repository.
func PushFromStore(ctx context.Context, storePath string, opts PushOptions) (*PushResult, error) {
	if opts.Tag == "" {
		return nil, errors.New("tag is required to push OCI image")
	}

	registryHost := stripProtocol(opts.Registry)
	refString := fmt.Sprintf("%s/%s:%s", registryHost, opts.Repository, opts.Tag)
	if _, err := reference.ParseNormalizedNamed(refString); err != nil {
		return nil, fmt.Errorf("invalid image reference '%s': %w", refString, err)
	}

	store, err := oci.New(storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open OCI layout: %w", err)
	}

	repo, err := remote.NewRepository(fmt.Sprintf("%s/%s", registryHost, opts.Repository))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote repository: %w", err)
	}
	repo.PlainHTTP = opts.PlainHTTP
	repo.Client = createAuthClient(opts.PlainHTTP, opts.InsecureTLS)

	desc, err := oras.Copy(ctx, store, opts.Tag, repo, opts.Tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to push artifact to registry: %w", err)
	}

	return &PushResult{
		Digest:    desc.Digest.String(),
		Reference: refString,
	}, nil
}

// OutputConfig configures PackageAndPush.
type OutputConfig struct {
	SourceDir             string
	OutputDir             string
	Reference             *Reference
	Annotations           map[string]string
	ReproducibleTimestamp string
	PlainHTTP             bool
	InsecureTLS           bool
}

// PackageAndPushResult describes a packaged and pushed artifact.
type PackageAndPushResult struct {
	Digest    string `json:"digest" yaml:"digest"`
	Reference string `json:"reference" yaml:"reference"`
	StorePath string `json:"storePath" yaml:"storePath"`
}

// PackageAndPush runs Package then PushFromStore.
func PackageAndPush(ctx context.Context, cfg OutputConfig) (*PackageAndPushResult, error) {
	if cfg.Reference == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "OCI reference is required")
	}
	if cfg.Reference.Tag == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "tag is required for OCI packaging")
	}
	ref := cfg.Reference

	pkg, err := Package(ctx, PackageOptions{
		SourceDir:             cfg.SourceDir,
		OutputDir:             cfg.OutputDir,
		Registry:              ref.Registry,
		Repository:            ref.Repository,
		Tag:                   ref.Tag,
		Annotations:           cfg.Annotations,
		ReproducibleTimestamp: cfg.ReproducibleTimestamp,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to package OCI artifact", err)
	}
	slog.Info("OCI artifact packaged locally",
		"reference", pkg.Reference,
		"digest", pkg.Digest,
		"store_path", pkg.StorePath)

	pushed, err := PushFromStore(ctx, pkg.StorePath, PushOptions{
		Registry:    ref.Registry,
		Repository:  ref.Repository,
		Tag:         ref.Tag,
		PlainHTTP:   cfg.PlainHTTP,
		InsecureTLS: cfg.InsecureTLS,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to push OCI artifact to registry", err)
	}
	slog.Info("OCI artifact pushed",
		"reference", pushed.Reference,
		"digest", pushed.Digest)

	return &PackageAndPushResult{
		Digest:    pushed.Digest,
		Reference: pushed.Reference,
		StorePath: pkg.StorePath,
	}, nil
}

func stripProtocol(registry string) string {
	registry = strings.TrimPrefix(registry, "https://")
	registry = strings.TrimPrefix(registry, "http://")
	return registry
}

// createAuthClient returns a client using Docker credential helpers, with
// certificate checks disabled when insecureTLS is set.
func createAuthClient(plainHTTP, insecureTLS bool) *auth.Client {
	credStore, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		slog.Debug("docker credentials unavailable", "error", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !plainHTTP && insecureTLS {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
		}
	}

	client := &auth.Client{
		Client: &http.Client{Transport: transport},
		Cache:  auth.NewCache(),
	}
	if credStore != nil {
		client.Credential = credentials.Credential(credStore)
	}
	return client
}

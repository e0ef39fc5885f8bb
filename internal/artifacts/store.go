// Package artifacts keeps failure evidence (screenshots, reports) from a run,
// either on disk or in an S3-compatible bucket.
package artifacts

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/kuitang/stockdash-e2e/internal/config"
	"github.com/kuitang/stockdash-e2e/internal/dashboard"
	"github.com/kuitang/stockdash-e2e/internal/obs"
)

// Store persists one artifact and reports where it went.
type Store interface {
	Put(ctx context.Context, key string, content []byte, contentType string) (location string, err error)
}

// Key builds "<run-id>/<check-slug>.<ext>".
func Key(runID, name, ext string) string {
	return Slug(runID) + "/" + Slug(name) + "." + strings.TrimPrefix(ext, ".")
}

// Slug lowercases s and collapses every run of other characters into one dash.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "artifact"
	}
	return out
}

// FromConfig picks the bucket when one is configured, else the directory.
// It returns nil when neither is set.
func FromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	switch {
	case cfg.ArtifactsBucket != "":
		s, err := NewS3Store(ctx, S3Config{
			Endpoint:        cfg.AWSEndpointS3,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			BucketName:      cfg.ArtifactsBucket,
			UsePathStyle:    cfg.AWSEndpointS3 != "",
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case cfg.ArtifactsDir != "":
		d, err := NewDirStore(cfg.ArtifactsDir)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, nil
	}
}

// ScreenshotOnFailure returns a dashboard.RunOptions.OnFailure hook that
// stores a screenshot of the failing page. Capture errors are logged and
// yield no artifact.
func ScreenshotOnFailure(store Store, d dashboard.Driver) func(ctx context.Context, check dashboard.Check, err error) []string {
	return func(ctx context.Context, check dashboard.Check, _ error) []string {
		if store == nil {
			return nil
		}
		log := obs.From(ctx).With("pkg", "artifacts")
		png, err := d.Screenshot(ctx)
		if err != nil {
			log.Warn("screenshot failed", "error", err)
			return nil
		}
		key := Key(obs.RunIDFromContext(ctx), check.Name, "png")
		loc, err := store.Put(ctx, key, png, "image/png")
		if err != nil {
			log.Warn("store screenshot failed", "key", key, "error", err)
			return nil
		}
		log.Info("screenshot stored", "location", loc)
		return []string{loc}
	}
}

func wrapPut(key string, err error) error {
	return fmt.Errorf("artifacts: put %q: %w", key, err)
}

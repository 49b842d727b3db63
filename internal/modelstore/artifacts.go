package modelstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/Dan9191/debt-insights/internal/analytics"
	"github.com/Dan9191/debt-insights/internal/ml"
)

// Artifact file names inside the model directory
const (
	RiskModelFile    = "risk_model.gob.gz"
	PaymentModelFile = "payment_model.gob.gz"
	ScalerFile       = "scaler.gob.gz"
)

// artifactHeader binds an artifact to the training run that produced it
type artifactHeader struct {
	Name      string
	RunID     uuid.UUID
	TrainedAt time.Time
	SavedAt   time.Time
	Report    analytics.TrainingReport
	Checksum  string
}

// artifactFile is the on-disk layout: header plus gzip-compressed gob payload
type artifactFile struct {
	Header  artifactHeader
	Payload []byte
}

// writeSnapshot writes the three artifacts to temporary files and renames them
// into place only after all of them were written successfully.
func writeSnapshot(ctx context.Context, dir string, snap *analytics.Snapshot) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	artifacts := map[string]any{
		RiskModelFile:    snap.Risk,
		PaymentModelFile: snap.Payment,
		ScalerFile:       snap.Scaler,
	}
	saved := time.Now()

	g, _ := errgroup.WithContext(ctx)
	for name, data := range artifacts {
		g.Go(func() error {
			header := artifactHeader{
				Name:      name,
				RunID:     snap.RunID,
				TrainedAt: snap.TrainedAt,
				SavedAt:   saved,
				Report:    snap.Report,
			}
			return writeArtifact(filepath.Join(dir, name+".tmp"), header, data)
		})
	}
	if err := g.Wait(); err != nil {
		for name := range artifacts {
			_ = os.Remove(filepath.Join(dir, name+".tmp"))
		}
		return err
	}

	for name := range artifacts {
		if err := os.Rename(filepath.Join(dir, name+".tmp"), filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("install %s: %w", name, err)
		}
	}
	return nil
}

func writeArtifact(path string, header artifactHeader, data any) error {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(data); err != nil {
		return fmt.Errorf("encode %s: %w", header.Name, err)
	}
	sum := blake2b.Sum256(raw.Bytes())
	header.Checksum = hex.EncodeToString(sum[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return fmt.Errorf("compress %s: %w", header.Name, err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression of %s: %w", header.Name, err)
	}

	f, err := os.Create(path) //nolint:gosec // path is built from the configured model directory
	if err != nil {
		return fmt.Errorf("create %s: %w", header.Name, err)
	}
	if err := gob.NewEncoder(f).Encode(artifactFile{Header: header, Payload: compressed.Bytes()}); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", header.Name, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", header.Name, err)
	}
	return f.Close()
}

// readSnapshot loads all three artifacts. The snapshot is returned only when
// every artifact is present, intact and from the same training run.
func readSnapshot(dir string) (*analytics.Snapshot, error) {
	var (
		risk    ml.ForestClassifier
		payment ml.ForestRegressor
		scaler  ml.StandardScaler
	)
	riskHeader, err := readArtifact(filepath.Join(dir, RiskModelFile), &risk)
	if err != nil {
		return nil, err
	}
	paymentHeader, err := readArtifact(filepath.Join(dir, PaymentModelFile), &payment)
	if err != nil {
		return nil, err
	}
	scalerHeader, err := readArtifact(filepath.Join(dir, ScalerFile), &scaler)
	if err != nil {
		return nil, err
	}

	if riskHeader.RunID != paymentHeader.RunID || riskHeader.RunID != scalerHeader.RunID {
		return nil, fmt.Errorf("%w: runs %s / %s / %s", ErrArtifactMismatch,
			riskHeader.RunID, paymentHeader.RunID, scalerHeader.RunID)
	}

	snap := &analytics.Snapshot{
		RunID:     riskHeader.RunID,
		TrainedAt: riskHeader.TrainedAt,
		Risk:      &risk,
		Payment:   &payment,
		Scaler:    &scaler,
		Report:    riskHeader.Report,
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactMismatch, err)
	}
	return snap, nil
}

func readArtifact(path string, target any) (artifactHeader, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the configured model directory
	if errors.Is(err, fs.ErrNotExist) {
		return artifactHeader{}, fmt.Errorf("%w: %s", ErrArtifactsMissing, filepath.Base(path))
	}
	if err != nil {
		return artifactHeader{}, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	var file artifactFile
	if err := gob.NewDecoder(f).Decode(&file); err != nil {
		return artifactHeader{}, fmt.Errorf("%w: read %s: %w", ErrArtifactMismatch, filepath.Base(path), err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(file.Payload))
	if err != nil {
		return artifactHeader{}, fmt.Errorf("%w: decompress %s: %w", ErrArtifactMismatch, file.Header.Name, err)
	}
	defer func() { _ = gzr.Close() }()
	raw, err := io.ReadAll(gzr)
	if err != nil {
		return artifactHeader{}, fmt.Errorf("%w: decompress %s: %w", ErrArtifactMismatch, file.Header.Name, err)
	}

	sum := blake2b.Sum256(raw)
	if checksum := hex.EncodeToString(sum[:]); checksum != file.Header.Checksum {
		return artifactHeader{}, fmt.Errorf("%w: checksum mismatch for %s", ErrArtifactMismatch, file.Header.Name)
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return artifactHeader{}, fmt.Errorf("%w: decode %s: %w", ErrArtifactMismatch, file.Header.Name, err)
	}
	return file.Header, nil
}

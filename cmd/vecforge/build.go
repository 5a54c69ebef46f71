package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path"
	"strconv"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"github.com/vecforge/vecforge"
	"github.com/vecforge/vecforge/blobstore"
	miniostore "github.com/vecforge/vecforge/blobstore/minio"
	s3store "github.com/vecforge/vecforge/blobstore/s3"
	"github.com/vecforge/vecforge/cagra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build an index from a raw vector file and serialize it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild()
	},
}

func newLogger() *vecforge.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if jsonLog {
		return vecforge.NewJSONLogger(level)
	}
	return vecforge.NewTextLogger(level)
}

func runBuild() error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	logger := newLogger()
	metrics := &vecforge.BasicMetricsCollector{}

	params, err := vecforge.BuildParametersFromMap(cfg.ParamMap())
	if err != nil {
		return err
	}

	opts := []vecforge.Option{
		vecforge.WithLogger(logger),
		vecforge.WithMetricsCollector(metrics),
	}
	if cfg.Compression != "" {
		comp, err := cagra.ParseCompression(cfg.Compression)
		if err != nil {
			return err
		}
		opts = append(opts, vecforge.WithWriteOptions(cagra.WithCompression(comp)))
	}

	builder, err := vecforge.New(params, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gpu, count, err := buildGPUBundle(cfg, params.DType)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "device index built", "vectors", count, "dtype", params.DType.String())

	cpu, err := builder.Convert(ctx, gpu)
	if err != nil {
		return err
	}

	if err := builder.Write(ctx, cpu, cfg.Output); err != nil {
		return err
	}

	if cfg.Upload.Backend == "" {
		return nil
	}
	return uploadOutput(ctx, cfg, logger, metrics)
}

// buildGPUBundle loads the raw vectors, builds the device-side graph and
// wraps it with the ID map.
func buildGPUBundle(cfg *Config, dtype vecforge.DataType) (*vecforge.GPUBundle, int, error) {
	degree := cfg.GraphDegree
	if degree <= 0 {
		degree = cagra.DefaultGraphDegree
	}

	switch dtype {
	case vecforge.DataTypeFloat:
		vecs, err := loadFloatVectors(cfg.Vectors, cfg.Dim)
		if err != nil {
			return nil, 0, err
		}
		ids, err := loadIDs(cfg.IDs, len(vecs))
		if err != nil {
			return nil, 0, err
		}
		gpu, err := cagra.BuildCagra(vecs, degree)
		if err != nil {
			return nil, 0, err
		}
		idmap := cagra.NewIDMap(nil)
		idmap.AddIDs(ids...)
		return vecforge.NewGPUBundle(dtype, gpu, idmap), len(vecs), nil

	case vecforge.DataTypeBinary:
		codes, err := loadBinaryCodes(cfg.Vectors, cfg.Dim)
		if err != nil {
			return nil, 0, err
		}
		ids, err := loadIDs(cfg.IDs, len(codes))
		if err != nil {
			return nil, 0, err
		}
		gpu, err := cagra.BuildBinaryCagra(codes, degree)
		if err != nil {
			return nil, 0, err
		}
		idmap := cagra.NewBinaryIDMap(nil)
		idmap.AddIDs(ids...)
		return vecforge.NewGPUBundle(dtype, gpu, idmap), len(codes), nil

	default:
		return nil, 0, fmt.Errorf("unsupported dtype %q", cfg.DType)
	}
}

// loadFloatVectors reads little-endian float32 records of dim values each.
func loadFloatVectors(path string, dim int) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vectors: %w", err)
	}

	rec := dim * 4
	if len(data)%rec != 0 {
		return nil, fmt.Errorf("vector file size %d is not a multiple of record size %d", len(data), rec)
	}

	n := len(data) / rec
	vecs := make([][]float32, n)
	for i := range n {
		v := make([]float32, dim)
		for j := range dim {
			bits := binary.LittleEndian.Uint32(data[i*rec+j*4:])
			v[j] = math.Float32frombits(bits)
		}
		vecs[i] = v
	}
	return vecs, nil
}

// loadBinaryCodes reads dim-byte codes.
func loadBinaryCodes(path string, dim int) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read codes: %w", err)
	}

	if len(data)%dim != 0 {
		return nil, fmt.Errorf("code file size %d is not a multiple of code size %d", len(data), dim)
	}

	n := len(data) / dim
	codes := make([][]byte, n)
	for i := range n {
		codes[i] = data[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return codes, nil
}

// loadIDs reads one decimal int64 per line. An empty path yields sequential
// IDs from 0.
func loadIDs(path string, n int) ([]int64, error) {
	ids := make([]int64, 0, n)
	if path == "" {
		for i := range n {
			ids = append(ids, int64(i))
		}
		return ids, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ids: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", line, err)
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(ids) != n {
		return nil, fmt.Errorf("id count %d does not match vector count %d", len(ids), n)
	}
	return ids, nil
}

func uploadOutput(ctx context.Context, cfg *Config, logger *vecforge.Logger, metrics vecforge.MetricsCollector) error {
	store, commits, err := newStore(ctx, &cfg.Upload)
	if err != nil {
		return err
	}

	uploader := vecforge.NewUploader(store,
		vecforge.WithUploadLogger(logger),
		vecforge.WithUploadMetrics(metrics),
		vecforge.WithUploadConcurrency(cfg.Upload.Concurrency),
		vecforge.WithUploadRateLimit(cfg.Upload.RateLimitBytes),
	)

	buildID := vecforge.NewBuildID()
	name := path.Join(cfg.IndexName, buildID+".cgr")

	if err := uploader.UploadFile(ctx, name, cfg.Output); err != nil {
		return err
	}

	if commits != nil {
		info, err := os.Stat(cfg.Output)
		if err != nil {
			return err
		}
		commit, err := commits.Record(ctx, s3store.Commit{
			IndexName: cfg.IndexName,
			ObjectKey: name,
			Size:      info.Size(),
			BuildID:   buildID,
		})
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "commit recorded",
			"index", commit.IndexName,
			"version", commit.Version,
			"key", commit.ObjectKey,
		)
	}
	return nil
}

// newStore constructs the configured upload backend. The commit store is
// non-nil only for s3 with a commit table configured.
func newStore(ctx context.Context, cfg *UploadConfig) (blobstore.Store, *s3store.CommitStore, error) {
	switch cfg.Backend {
	case "local":
		if cfg.Dir == "" {
			return nil, nil, fmt.Errorf("config: upload.dir is required for the local backend")
		}
		return blobstore.NewLocalStore(cfg.Dir), nil, nil

	case "s3":
		if cfg.Bucket == "" {
			return nil, nil, fmt.Errorf("config: upload.bucket is required for the s3 backend")
		}
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		store := s3store.NewStore(awss3.NewFromConfig(awsCfg), cfg.Bucket, s3store.WithPrefix(cfg.Prefix))

		var commits *s3store.CommitStore
		if cfg.CommitTable != "" {
			commits = s3store.NewCommitStore(dynamodb.NewFromConfig(awsCfg), cfg.CommitTable)
		}
		return store, commits, nil

	case "minio":
		if cfg.Bucket == "" || cfg.Endpoint == "" {
			return nil, nil, fmt.Errorf("config: upload.bucket and upload.endpoint are required for the minio backend")
		}
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create MinIO client: %w", err)
		}
		return miniostore.NewStore(client, cfg.Bucket, cfg.Prefix), nil, nil

	default:
		return nil, nil, fmt.Errorf("config: unknown upload backend %q", cfg.Backend)
	}
}

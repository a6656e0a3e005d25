// Command hlsprep prepares fragmented MP4 segments for HLS delivery,
// serving job/segment status over HTTP or, given a one-shot
// subcommand, driving the core pipeline directly against a single
// source key.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/streamforge/hlsprep/catalog"
	"github.com/streamforge/hlsprep/internal/config"
	"github.com/streamforge/hlsprep/internal/logging"
	"github.com/streamforge/hlsprep/internal/pipeline"
	"github.com/streamforge/hlsprep/notify"
	"github.com/streamforge/hlsprep/store"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/streamforge/hlsprep/httpapi"
)

func main() {
	cfg := config.Load()
	logger := logging.New()

	cat, err := catalog.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open catalog: %v", err)
	}
	defer cat.Close()

	src, sink, err := buildStoreAndSink(cfg)
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}

	hub := notify.NewHub()

	if len(os.Args) > 1 && os.Args[1] == "run" {
		runOnce(cfg, cat, src, sink, hub, logger, os.Args[2:])
		return
	}

	router := httpapi.NewRouter(cat, hub)
	log.Printf("hlsprep listening on %s", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, router))
}

func buildStoreAndSink(cfg config.Config) (store.Source, store.Sink, error) {
	if !cfg.UsesS3() {
		return store.LocalSource{Root: cfg.SourceDir}, store.LocalSink{Root: cfg.OutputDir}, nil
	}

	client, err := store.NewS3Client(context.Background(), cfg.AWSRegion)
	if err != nil {
		return nil, nil, err
	}
	return s3Source(client, cfg.S3Bucket), s3Sink(client, cfg.S3Bucket), nil
}

func s3Source(client *s3.Client, bucket string) store.Source {
	return store.S3Source{Client: client, Bucket: bucket}
}

func s3Sink(client *s3.Client, bucket string) store.Sink {
	return store.S3Sink{Client: client, Bucket: bucket}
}

// runOnce implements `hlsprep run <source-key>`, driving the core
// pipeline directly: fetch, parse, segment, generate, store, record,
// notify.
func runOnce(cfg config.Config, cat *catalog.Catalog, src store.Source, sink store.Sink, hub *notify.Hub, logger *logging.Logger, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: hlsprep run <source-key>")
		os.Exit(2)
	}
	sourceKey := args[0]

	job, err := cat.CreateJob(sourceKey)
	if err != nil {
		log.Fatalf("creating job: %v", err)
	}
	if err := cat.UpdateJobStatus(job.ID, catalog.JobRunning, nil); err != nil {
		log.Fatalf("updating job status: %v", err)
	}

	ctx := context.Background()
	runErr := pipeline.Run(ctx, job, sourceKey, cfg.SegmentSeconds, src, sink, cat, hub, logger)

	if runErr != nil {
		cat.UpdateJobStatus(job.ID, catalog.JobFailed, runErr)
		log.Fatalf("job %s failed: %v", job.ID, runErr)
	}
	cat.UpdateJobStatus(job.ID, catalog.JobCompleted, nil)
	fmt.Println(job.ID)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/atlas/internal/api"
	"github.com/miradorstack/atlas/internal/engine"
	"github.com/miradorstack/atlas/internal/models"
)

// LineEvaluator evaluates a single Observation line.
type LineEvaluator interface {
	EvaluateLine(line []byte) ([]models.StageResult, error)
}

// EvaluationService implements the gRPC Evaluator service.
type EvaluationService struct {
	api.UnimplementedEvaluatorServer

	logger   *slog.Logger
	pipeline LineEvaluator
	sink     engine.Sink
}

// NewEvaluationService constructs the service facade. When sink is non-nil
// every evaluated record set is also appended to it.
func NewEvaluationService(logger *slog.Logger, pipeline LineEvaluator, sink engine.Sink) *EvaluationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvaluationService{
		logger:   logger,
		pipeline: pipeline,
		sink:     sink,
	}
}

// Evaluate runs the pipeline over one Observation.
func (s *EvaluationService) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "observation cannot be nil")
	}
	if s.pipeline == nil {
		return nil, status.Error(codes.FailedPrecondition, "pipeline not configured")
	}

	line, err := api.FromProtoObservation(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	start := time.Now()
	records, err := s.pipeline.EvaluateLine(line)
	if err != nil {
		if errors.Is(err, engine.ErrMalformedObservation) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Error("evaluation failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, fmt.Sprintf("evaluation failed: %v", err))
	}

	if s.sink != nil {
		if err := s.sink.Append(ctx, records); err != nil {
			s.logger.Error("append records failed", slog.Any("error", err))
			return nil, status.Error(codes.Internal, "failed to persist records")
		}
	}

	out, err := api.ToProtoRecords(records)
	if err != nil {
		s.logger.Error("encode records failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode records")
	}
	s.logger.Debug("observation evaluated",
		slog.String("anchor_id", records[0].AnchorID),
		slog.Int("records", len(records)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
	"github.com/yungbote/campuspulse-backend/internal/observability"
	"github.com/yungbote/campuspulse-backend/internal/platform/llm"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

const CampusWindowSize = 20

type AnalysisStatus string

const (
	AnalysisOK                AnalysisStatus = "ok"
	AnalysisInsufficientData  AnalysisStatus = "insufficient_data"
	AnalysisUpstreamError     AnalysisStatus = "upstream_error"
	AnalysisMalformedResponse AnalysisStatus = "malformed_response"
	AnalysisTransportError    AnalysisStatus = "transport_error"
)

// AnalysisResult says which analysis was produced, or why none was.
// Analysis always holds something an operator can read.
type AnalysisResult struct {
	Status   AnalysisStatus       `json:"status"`
	Analysis pulse.CampusAnalysis `json:"analysis"`
	Detail   string               `json:"detail,omitempty"`
}

var campusReportSchema = llm.Schema{
	Name: "campus_report",
	Fields: []llm.Field{
		{Name: "trend", Kind: llm.FieldString, Description: "Overall wellbeing trend."},
		{Name: "stressor", Kind: llm.FieldString, Description: "Most significant stressor."},
		{Name: "intervention", Kind: llm.FieldString, Description: "Recommended campus intervention."},
	},
}

func insufficientData() pulse.CampusAnalysis {
	return pulse.CampusAnalysis{Trend: "Data insufficient", Stressor: "None", Intervention: "Wait for more data"}
}

func upstreamFailure(msg string) pulse.CampusAnalysis {
	if msg == "" {
		msg = "no message"
	}
	return pulse.CampusAnalysis{
		Trend:        "Analysis service returned an error",
		Stressor:     "Upstream error: " + msg,
		Intervention: "Check the analysis provider key, quota and model, then retry",
	}
}

func malformedFailure() pulse.CampusAnalysis {
	return pulse.CampusAnalysis{
		Trend:        "Analysis response could not be read",
		Stressor:     "Unknown",
		Intervention: "Retry the analysis; if it persists, review the provider model output",
	}
}

func transportFailure() pulse.CampusAnalysis {
	return pulse.CampusAnalysis{
		Trend:        "Analysis service unreachable",
		Stressor:     "Unknown",
		Intervention: "Check network access to the analysis provider and retry",
	}
}

type CampusReportService interface {
	// Summarize returns an error only when the shared store cannot be read;
	// analysis failures are reported through the result status.
	Summarize(ctx context.Context) (AnalysisResult, error)
}

type campusReportService struct {
	log       *logger.Logger
	aggregate AggregationService
	gen       llm.Generator
	timeout   time.Duration
	group     singleflight.Group
}

func NewCampusReportService(log *logger.Logger, aggregate AggregationService, gen llm.Generator, timeout time.Duration) CampusReportService {
	return &campusReportService{
		log:       log.With("service", "CampusReportService"),
		aggregate: aggregate,
		gen:       gen,
		timeout:   timeout,
	}
}

func (s *campusReportService) Summarize(ctx context.Context) (AnalysisResult, error) {
	window, err := s.aggregate.CampusWindow(ctx, CampusWindowSize)
	if err != nil {
		return AnalysisResult{}, err
	}
	if len(window) == 0 {
		return AnalysisResult{Status: AnalysisInsufficientData, Analysis: insufficientData()}, nil
	}
	digest := campusDigest(window)

	v, _, _ := s.group.Do(digest, func() (any, error) {
		return s.summarize(context.WithoutCancel(ctx), digest), nil
	})
	return v.(AnalysisResult), nil
}

func (s *campusReportService) summarize(ctx context.Context, digest string) AnalysisResult {
	if s.gen == nil {
		return AnalysisResult{
			Status:   AnalysisTransportError,
			Analysis: transportFailure(),
			Detail:   "no analysis provider configured",
		}
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, span := observability.Tracer().Start(ctx, "pulse.campus_analysis")
	defer span.End()
	span.SetAttributes(attribute.String("llm.provider", s.gen.Provider()))

	text, err := s.gen.GenerateJSON(ctx, campusPrompt(digest), campusReportSchema)
	if err != nil {
		span.RecordError(err)
		return s.failure(err)
	}
	analysis, err := parseCampusAnalysis(text)
	if err != nil {
		return s.failure(llm.Malformed(s.gen.Provider(), err))
	}
	return AnalysisResult{Status: AnalysisOK, Analysis: analysis}
}

func (s *campusReportService) failure(err error) AnalysisResult {
	kind := llm.KindOf(err)
	s.log.Warn("campus analysis failed", "provider", s.gen.Provider(), "kind", kind.String(), "error", err)
	switch kind {
	case llm.KindUpstream:
		msg := llm.UpstreamMessage(err)
		return AnalysisResult{Status: AnalysisUpstreamError, Analysis: upstreamFailure(msg), Detail: msg}
	case llm.KindMalformed:
		return AnalysisResult{Status: AnalysisMalformedResponse, Analysis: malformedFailure(), Detail: err.Error()}
	default:
		return AnalysisResult{Status: AnalysisTransportError, Analysis: transportFailure(), Detail: err.Error()}
	}
}

// campusDigest renders one "Mood:m, Stress:s, Sentiment:label" line per record.
func campusDigest(window []pulse.StoredRecord) string {
	lines := make([]string, 0, len(window))
	for _, r := range window {
		stress := "unknown"
		if r.Stress.Valid {
			stress = strconv.FormatFloat(r.Stress.Value, 'f', -1, 64)
		}
		sentiment := string(r.Entry.Sentiment)
		if sentiment == "" {
			sentiment = "unknown"
		}
		lines = append(lines, fmt.Sprintf("Mood:%s, Stress:%s, Sentiment:%s",
			strconv.FormatFloat(r.Mood.Value, 'f', -1, 64), stress, sentiment))
	}
	return strings.Join(lines, "\n")
}

func campusPrompt(digest string) string {
	var b strings.Builder
	b.WriteString("Analyze these anonymous logs for a University Weekly Report:\n")
	b.WriteString(digest)
	b.WriteString("\n\n")
	b.WriteString(`Output JSON: { "trend": "...", "stressor": "...", "intervention": "..." }`)
	return b.String()
}

func parseCampusAnalysis(text string) (pulse.CampusAnalysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return pulse.CampusAnalysis{}, fmt.Errorf("empty candidate text")
	}
	var raw struct {
		Trend        *string `json:"trend"`
		Stressor     *string `json:"stressor"`
		Intervention *string `json:"intervention"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return pulse.CampusAnalysis{}, err
	}
	if raw.Trend == nil || raw.Stressor == nil || raw.Intervention == nil {
		return pulse.CampusAnalysis{}, fmt.Errorf("response missing trend, stressor or intervention")
	}
	return pulse.CampusAnalysis{Trend: *raw.Trend, Stressor: *raw.Stressor, Intervention: *raw.Intervention}, nil
}

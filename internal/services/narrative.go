package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/hellocounsel/reports-backend/internal/clients/llm"
	"github.com/hellocounsel/reports-backend/internal/platform/apierr"
	"github.com/hellocounsel/reports-backend/internal/platform/logger"
	"github.com/hellocounsel/reports-backend/internal/repos"
	"github.com/hellocounsel/reports-backend/internal/types"
)

var (
	aiResponseKeyPattern = regexp.MustCompile(`"ai_response"\s*:\s*"`)
	markdownLinkPattern  = regexp.MustCompile(`\[[^\]]*\]\([^)]*\)`)
	bareURLPattern       = regexp.MustCompile(`https?://[^\s)\]"'<>]+`)
	uuidTokenPattern     = regexp.MustCompile("`?[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`?")
)

// ExtractResult tags whether the narrative came from a strict parse or
// the best-effort recovery path. Callers branch only on the tag, never on
// how the text was obtained.
type ExtractResult struct {
	Text      string
	Recovered bool
}

// AttachResult is the tagged per-type outcome of narrative attachment. A
// failure for one report type never aborts sibling types in a batch.
type AttachResult struct {
	ReportType string `json:"reportType"`
	Success    bool   `json:"success"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NarrativeService turns a model response into a stored narrative:
// parse/repair the JSON envelope, rewrite correlation ids into dashboard
// deep links, persist on the owning report.
type NarrativeService interface {
	Extract(raw string) (ExtractResult, error)
	RewriteLinks(text string, allowIDs []string, environment string) string
	Attach(ctx context.Context, environment, reportID, reportType string) AttachResult
}

type narrativeService struct {
	stores           *repos.ReplicaStores
	prompts          repos.PromptRepo
	generator        llm.Client
	dashboardBaseURL string
	log              *logger.Logger
}

func NewNarrativeService(stores *repos.ReplicaStores, prompts repos.PromptRepo, generator llm.Client, dashboardBaseURL string, baseLog *logger.Logger) NarrativeService {
	return &narrativeService{
		stores:           stores,
		prompts:          prompts,
		generator:        generator,
		dashboardBaseURL: strings.TrimRight(dashboardBaseURL, "/"),
		log:              baseLog.With("service", "NarrativeService"),
	}
}

// Pointer field so a present-but-empty ai_response is distinguishable
// from a missing key.
type narrativeEnvelope struct {
	AIResponse *string `json:"ai_response"`
}

// Extract parses the model's `{"ai_response": "..."}` envelope. Models
// routinely emit unescaped control characters inside the string, which
// breaks strict JSON; the recovery path captures from the key's opening
// quote to the end of the text and manually un-escapes it.
func (s *narrativeService) Extract(raw string) (ExtractResult, error) {
	var envelope narrativeEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err == nil && envelope.AIResponse != nil {
		return ExtractResult{Text: *envelope.AIResponse}, nil
	}

	loc := aiResponseKeyPattern.FindStringIndex(raw)
	if loc == nil {
		return ExtractResult{}, apierr.Parse("narrative response has no ai_response field")
	}
	captured := raw[loc[1]:]
	captured = strings.TrimRight(captured, " \t\r\n")
	captured = strings.TrimSuffix(captured, "}")
	captured = strings.TrimRight(captured, " \t\r\n")
	captured = strings.TrimSuffix(captured, `"`)

	return ExtractResult{Text: unescapeNarrative(captured), Recovered: true}, nil
}

// unescapeNarrative resolves \n, \" and \\ in a single left-to-right pass
// so recovered text is never double-unescaped.
func unescapeNarrative(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '"':
				b.WriteByte('"')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

type substitution struct {
	placeholder string
	original    string
}

// RewriteLinks replaces UUID-shaped tokens from the allow-list with
// dashboard deep links. Existing markdown links and bare URLs are
// protected by placeholders first (links, then URLs) and restored in
// reverse order afterwards, so a UUID already inside a link is never
// wrapped twice and the whole rewrite is idempotent.
func (s *narrativeService) RewriteLinks(text string, allowIDs []string, environment string) string {
	if text == "" {
		return text
	}
	allow := make(map[string]bool, len(allowIDs))
	for _, id := range allowIDs {
		allow[strings.ToLower(strings.TrimSpace(id))] = true
	}

	var subs []substitution
	protect := func(pattern *regexp.Regexp, input string) string {
		return pattern.ReplaceAllStringFunc(input, func(match string) string {
			// Hyphens stripped so a placeholder can never match the UUID scan.
			token := "\x00" + strings.ReplaceAll(uuid.NewString(), "-", "") + "\x00"
			subs = append(subs, substitution{placeholder: token, original: match})
			return token
		})
	}
	protected := protect(markdownLinkPattern, text)
	protected = protect(bareURLPattern, protected)

	rewritten := uuidTokenPattern.ReplaceAllStringFunc(protected, func(match string) string {
		id := strings.ToLower(strings.Trim(match, "`"))
		if !allow[id] {
			return match
		}
		return fmt.Sprintf("[%s](%s)", id, s.deepLink(environment, id))
	})

	// LIFO restore: URLs first, then links, preserving nesting.
	for i := len(subs) - 1; i >= 0; i-- {
		rewritten = strings.Replace(rewritten, subs[i].placeholder, subs[i].original, 1)
	}
	return rewritten
}

func (s *narrativeService) deepLink(environment, callID string) string {
	return fmt.Sprintf("%s/calls?e=%s&callId=%s",
		s.dashboardBaseURL, url.QueryEscape(environment), url.QueryEscape(callID))
}

// Attach generates and persists the narrative for one report type.
func (s *narrativeService) Attach(ctx context.Context, environment, reportID, reportType string) AttachResult {
	if err := s.attach(ctx, environment, reportID, reportType); err != nil {
		s.log.Error("Narrative attachment failed",
			"reportId", reportID, "reportType", reportType, "error", err)
		return AttachResult{
			ReportType: reportType,
			Success:    false,
			Code:       apierr.CodeOf(err),
			Error:      err.Error(),
		}
	}
	return AttachResult{ReportType: reportType, Success: true}
}

func (s *narrativeService) attach(ctx context.Context, environment, reportID, reportType string) error {
	if !types.ValidReportType(reportType) {
		return apierr.BadRequest("unknown report type %q", reportType)
	}

	reportRepo, err := s.stores.Reports(environment)
	if err != nil {
		return err
	}
	report, err := reportRepo.GetByID(ctx, reportID)
	if err != nil {
		return err
	}
	if report == nil {
		return apierr.NotFound("report %s not found", reportID)
	}

	promptRow, err := s.prompts.GetByType(ctx, reportType)
	if err != nil {
		return err
	}
	if promptRow == nil {
		return apierr.Config("narrative prompt for report type %q is not configured", reportType)
	}

	payload, allowIDs, err := narrativePayload(report, reportType)
	if err != nil {
		return err
	}

	raw, err := s.generator.Generate(ctx, promptRow.Prompt+"\n\n"+payload, llm.ResponseFormatJSON)
	if err != nil {
		return err
	}

	extracted, err := s.Extract(raw)
	if err != nil {
		return err
	}
	if extracted.Recovered {
		s.log.Warn("Narrative JSON required recovery", "reportId", reportID, "reportType", reportType)
	}

	narrative := s.RewriteLinks(extracted.Text, allowIDs, environment)

	patch := map[string]interface{}{}
	switch reportType {
	case types.ReportTypeSuccess:
		patch["success_report"] = narrative
	case types.ReportTypeFailure:
		patch["failure_report"] = narrative
	default:
		// full and weekly both persist into full_report.
		patch["full_report"] = narrative
	}
	_, err = reportRepo.Update(ctx, reportID, patch)
	return err
}

// narrativePayload renders the raw data slice the generator should see
// for a report type. Weekly narratives get summary-only data; the other
// types see their bucket of per-call records.
func narrativePayload(report *types.Report, reportType string) (string, []string, error) {
	if reportType == types.ReportTypeWeekly {
		weekly, err := report.WeeklyRawData()
		if err != nil {
			return "", nil, err
		}
		b, err := json.MarshalIndent(weekly, "", "  ")
		if err != nil {
			return "", nil, err
		}
		return string(b), nil, nil
	}

	eod, err := report.EODRawData()
	if err != nil {
		return "", nil, err
	}

	view := eod
	switch reportType {
	case types.ReportTypeSuccess:
		view.Failure = []types.CallRecord{}
	case types.ReportTypeFailure:
		view.Success = []types.CallRecord{}
	}
	b, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return "", nil, err
	}
	return string(b), eod.CorrelationIDs(), nil
}

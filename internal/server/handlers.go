package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vanshika/comptree/backend/internal/domain"
	"github.com/vanshika/comptree/backend/internal/export"
	"github.com/vanshika/comptree/backend/internal/service"
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger   *slog.Logger
	service  *service.NetworkService
	validate *validator.Validate
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, svc *service.NetworkService) *APIHandlers {
	return &APIHandlers{
		logger:   logger.With("component", "api"),
		service:  svc,
		validate: validator.New(),
	}
}

func (h *APIHandlers) getTree(w http.ResponseWriter, r *http.Request) {
	rootID := chi.URLParam(r, "rootID")
	params, err := parseFilterParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.service.Filtered(r.Context(), rootID, params)
	if err != nil {
		h.writeServiceError(w, err, "failed to load network", "root", rootID)
		return
	}

	rewards, _ := h.service.Policies()
	respondJSON(w, http.StatusOK, treeResponse{
		RootID:     view.Tree.Root.ID,
		Size:       view.Tree.Size,
		AnchorOnly: view.Tree.AnchorOnly,
		Members:    flattenTree(view.Tree),
		Summary:    toSummaryResponse(view.Summary, rewards.Tiers),
	})
}

func (h *APIHandlers) getAnalytics(w http.ResponseWriter, r *http.Request) {
	rootID := chi.URLParam(r, "rootID")
	snap, err := h.service.Snapshot(r.Context(), rootID)
	if err != nil {
		h.writeServiceError(w, err, "failed to load network", "root", rootID)
		return
	}
	rewards, _ := h.service.Policies()
	respondJSON(w, http.StatusOK, analyticsResponse{
		RootID:     snap.RootID,
		Generation: snap.Generation,
		BuiltAt:    formatTime(snap.BuiltAt),
		Summary:    toSummaryResponse(snap.Summary, rewards.Tiers),
	})
}

func (h *APIHandlers) refreshNetwork(w http.ResponseWriter, r *http.Request) {
	rootID := chi.URLParam(r, "rootID")
	snap, err := h.service.Recompute(r.Context(), rootID)
	if err != nil {
		h.writeServiceError(w, err, "failed to recompute network", "root", rootID)
		return
	}
	rewards, _ := h.service.Policies()
	respondJSON(w, http.StatusOK, analyticsResponse{
		RootID:     snap.RootID,
		Generation: snap.Generation,
		BuiltAt:    formatTime(snap.BuiltAt),
		Summary:    toSummaryResponse(snap.Summary, rewards.Tiers),
	})
}

func (h *APIHandlers) searchMembers(w http.ResponseWriter, r *http.Request) {
	rootID := chi.URLParam(r, "rootID")
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 20)

	results, err := h.service.Search(r.Context(), rootID, query, limit)
	if err != nil {
		h.writeServiceError(w, err, "failed to search network", "root", rootID)
		return
	}

	resp := searchResponse{Query: query, Items: []memberResponse{}}
	for _, m := range results {
		resp.Items = append(resp.Items, toMemberResponse(m, ""))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) getMember(w http.ResponseWriter, r *http.Request) {
	rootID := chi.URLParam(r, "rootID")
	memberID := chi.URLParam(r, "memberID")

	view, err := h.service.Member(r.Context(), rootID, memberID)
	if err != nil {
		h.writeServiceError(w, err, "failed to load member", "root", rootID, "member", memberID)
		return
	}

	parentID := ""
	if len(view.Path) > 1 {
		parentID = view.Path[len(view.Path)-2]
	}
	resp := memberDetailResponse{
		Member: toMemberResponse(view.Member, parentID),
		Path:   view.Path,
		Progress: progressResponse{
			CurrentTier:     view.Progress.Current.Name,
			WithdrawPercent: view.Progress.Current.WithdrawPercent,
			ReinvestPercent: view.Progress.Current.ReinvestPercent,
			ReferralsNeeded: view.Progress.ReferralsNeeded,
			Percent:         view.Progress.Percent,
		},
	}
	if next := view.Progress.Next; next != nil {
		resp.Progress.NextTier = next.Name
		resp.Progress.NextThreshold = next.MinReferrals
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) previewWithdrawal(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeWithdrawalPreview(w, r)
	if !ok {
		return
	}
	b, err := h.service.PreviewWithdrawal(req)
	if err != nil {
		h.writeServiceError(w, err, "failed to compute withdrawal")
		return
	}
	respondJSON(w, http.StatusOK, toWithdrawalResponse(b))
}

func (h *APIHandlers) exportWithdrawal(w http.ResponseWriter, r *http.Request) {
	format, opts, err := parseExportParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, ok := h.decodeWithdrawalPreview(w, r)
	if !ok {
		return
	}
	b, err := h.service.PreviewWithdrawal(req)
	if err != nil {
		h.writeServiceError(w, err, "failed to compute withdrawal")
		return
	}
	h.writeDocument(w, export.Withdrawal(b), format, opts, "withdrawal")
}

func (h *APIHandlers) recordWithdrawal(w http.ResponseWriter, r *http.Request) {
	rootID := chi.URLParam(r, "rootID")
	var payload withdrawalRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	entry, err := h.service.RecordWithdrawal(r.Context(), service.WithdrawalInput{
		RootID:       rootID,
		MemberID:     payload.MemberID,
		Amount:       payload.Amount,
		AutoCompound: payload.AutoCompound,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to record withdrawal", "root", rootID, "member", payload.MemberID)
		return
	}
	respondJSON(w, http.StatusCreated, toLedgerEntryResponse(entry))
}

func (h *APIHandlers) withdrawalHistory(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")
	entries, fees := h.service.WithdrawalHistory(memberID)

	resp := historyResponse{MemberID: memberID, TotalFeesCollected: fees, Items: []ledgerEntryResponse{}}
	for _, entry := range entries {
		resp.Items = append(resp.Items, toLedgerEntryResponse(entry))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) exportSummary(w http.ResponseWriter, r *http.Request) {
	rootID := chi.URLParam(r, "rootID")
	format, opts, err := parseExportParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := h.service.Snapshot(r.Context(), rootID)
	if err != nil {
		h.writeServiceError(w, err, "failed to load network", "root", rootID)
		return
	}
	h.writeDocument(w, export.Summary(snap.Summary), format, opts, "network-"+snap.RootID)
}

func (h *APIHandlers) getPolicy(w http.ResponseWriter, r *http.Request) {
	rewards, payouts := h.service.Policies()
	resp := policyResponse{
		CapMultiplier:          rewards.CapMultiplier,
		CreditedRate:           rewards.CreditedRate,
		LeadershipMinDirects:   rewards.LeadershipMinDirects,
		LeadershipMinCommunity: rewards.LeadershipMinCommunity,
		MaxDepth:               rewards.MaxDepth,
		Rates: rewardsResponse{
			DirectBonus:       rewards.DirectBonusRate,
			LevelRewards:      rewards.LevelRate,
			GlobalRewards:     rewards.GlobalRate,
			LeadershipRewards: rewards.LeadershipRate,
			GrowthPool:        rewards.GrowthRate,
		},
		FeeRate:           payouts.FeeRate,
		CompoundBonusRate: payouts.CompoundBonusRate,
	}
	for _, tier := range rewards.Tiers {
		resp.Tiers = append(resp.Tiers, tierPolicyResponse{
			Name:        tier.Name,
			Price:       tier.Price,
			EarningsCap: rewards.CapFor(tier),
		})
	}
	for _, rule := range payouts.Splits {
		resp.Splits = append(resp.Splits, splitResponse{
			Name:            rule.Name,
			MinReferrals:    rule.MinReferrals,
			WithdrawPercent: rule.WithdrawPercent,
			ReinvestPercent: rule.ReinvestPercent,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) decodeWithdrawalPreview(w http.ResponseWriter, r *http.Request) (domain.WithdrawalRequest, bool) {
	var payload withdrawalPreviewRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.WithdrawalRequest{}, false
	}
	if err := h.validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return domain.WithdrawalRequest{}, false
	}
	return domain.WithdrawalRequest{
		Amount:              payload.Amount,
		DirectIntroductions: payload.DirectIntroductions,
		AutoCompound:        payload.AutoCompound,
	}, true
}

func (h *APIHandlers) writeDocument(w http.ResponseWriter, doc export.Document, format string, opts export.Options, name string) {
	var buf bytes.Buffer
	contentType := "application/json"
	var err error
	if format == "csv" {
		contentType = "text/csv"
		err = export.WriteCSV(&buf, doc, opts)
	} else {
		err = export.WriteJSON(&buf, doc, opts)
	}
	if err != nil {
		h.logger.Error("failed to render export", "error", err, "format", format)
		writeError(w, http.StatusInternalServerError, "failed to render export")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// writeServiceError maps engine and service failures onto HTTP statuses.
func (h *APIHandlers) writeServiceError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNoData):
		status = http.StatusServiceUnavailable
	case errors.Is(err, service.ErrMemberNotInNetwork):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrSuperseded):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount):
		status = http.StatusBadRequest
	case isStructuralError(err):
		status = http.StatusUnprocessableEntity
	}

	logAttrs := append([]any{"error", err, "status", status}, attrs...)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, logAttrs...)
	} else {
		h.logger.Warn(msg, logAttrs...)
	}

	if status == http.StatusInternalServerError {
		writeError(w, status, msg)
		return
	}
	writeError(w, status, err.Error())
}

func isStructuralError(err error) bool {
	for _, target := range []error{
		domain.ErrCycleDetected,
		domain.ErrMultipleRoots,
		domain.ErrDanglingEdge,
		domain.ErrDuplicateMember,
		domain.ErrInvalidTier,
		domain.ErrInvalidVolume,
		domain.ErrEmptyNetwork,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func parseFilterParams(r *http.Request) (service.FilterParams, error) {
	query := r.URL.Query()
	params := service.FilterParams{Tier: query.Get("tier")}

	if v := query.Get("activeOnly"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return params, errors.New("invalid activeOnly")
		}
		params.ActiveOnly = active
	}
	for _, field := range []struct {
		key string
		dst *int
	}{
		{"minLevel", &params.MinLevel},
		{"maxLevel", &params.MaxLevel},
	} {
		v := query.Get(field.key)
		if v == "" {
			continue
		}
		level, err := strconv.Atoi(v)
		if err != nil || level < 0 {
			return params, fmt.Errorf("invalid %s", field.key)
		}
		*field.dst = level
	}
	if params.MinLevel > 0 && params.MaxLevel > 0 && params.MinLevel > params.MaxLevel {
		return params, errors.New("minLevel must not exceed maxLevel")
	}
	return params, nil
}

func parseExportParams(r *http.Request) (string, export.Options, error) {
	query := r.URL.Query()
	format := strings.ToLower(query.Get("format"))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		return "", export.Options{}, errors.New("format must be csv or json")
	}

	opts := export.DefaultOptions()
	switch v := query.Get("precision"); v {
	case "":
	case "full":
		opts.Precision = export.FullPrecision
	default:
		precision, err := strconv.Atoi(v)
		if err != nil || precision < export.FullPrecision || precision > 10 {
			return "", export.Options{}, errors.New("invalid precision")
		}
		opts.Precision = precision
	}
	return format, opts, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

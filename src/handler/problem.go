package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"evergreen/src/trading"

	logger "github.com/sirupsen/logrus"
)

const problemContentType = "application/problem+json"

// Problem is an RFC 7807 problem detail with the trading error code attached.
type Problem struct {
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Status         int      `json:"status"`
	Detail         string   `json:"detail"`
	Code           string   `json:"code"`
	Details        []string `json:"details,omitempty"`
	UpstreamStatus *int     `json:"upstreamStatus,omitempty"`
}

// ProblemFor maps err to its problem detail. Anything that is not a *trading.Error
// becomes a 500 internal_error without leaking the cause.
func ProblemFor(err error) Problem {
	var te *trading.Error
	if !errors.As(err, &te) || te.Kind == trading.KindInternal || te.Status == 0 {
		return newProblem(http.StatusInternalServerError, trading.CodeInternalError, "Unexpected server error")
	}

	p := newProblem(te.Status, te.Code, te.Message)
	if te.Code == trading.CodeValidationError {
		p.Details = append([]string{}, te.Details...)
	}
	if te.Kind == trading.KindUpstream && te.UpstreamStatus > 0 {
		status := te.UpstreamStatus
		p.UpstreamStatus = &status
	}
	return p
}

func newProblem(status int, code, detail string) Problem {
	return Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Code:   code,
	}
}

// WriteError writes err as application/problem+json.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	p := ProblemFor(err)

	entry := logger.WithFields(map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": p.Status,
		"code":   p.Code,
	}).WithError(err)
	if p.Status >= http.StatusInternalServerError {
		entry.Error("Trading request failed")
	} else {
		entry.Info("Trading request rejected")
	}

	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		logger.WithError(err).Error("failed to encode problem response")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

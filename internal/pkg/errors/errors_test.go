package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New(CodeValidation, "invalid input"),
			want: "VALIDATION_ERROR: invalid input",
		},
		{
			name: "with wrapped error",
			err:  DataAccessError("aggregate query failed", errors.New("connection refused")),
			want: "DATA_ACCESS_ERROR: aggregate query failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeInternal, "wrapped", underlying)

	if !errors.Is(err, underlying) {
		t.Errorf("errors.Is(%v, underlying) = false, want true", err)
	}
}

func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeInvalidRequest, http.StatusBadRequest},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeDataAccess, http.StatusServiceUnavailable},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeBus, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := New(tt.code, "x").HTTPStatus(); got != tt.status {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.status)
			}
		})
	}
}

func TestCodeOf_WrappedChain(t *testing.T) {
	inner := DataAccessError("query failed", errors.New("timeout"))
	outer := fmt.Errorf("computing at threshold 30: %w", inner)

	if got := CodeOf(outer); got != CodeDataAccess {
		t.Errorf("CodeOf() = %q, want %q", got, CodeDataAccess)
	}
	if !IsDataAccess(outer) {
		t.Error("IsDataAccess() = false, want true")
	}
	if IsValidation(outer) {
		t.Error("unexpected code match on data access error")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("CodeOf() on plain error should be empty")
	}
}

func TestRateLimitedError(t *testing.T) {
	err := RateLimitedError(3)
	if err.Details["retry_after"] != "3" {
		t.Errorf("retry_after = %q, want %q", err.Details["retry_after"], "3")
	}
	if RateLimitedError(0).Details != nil {
		t.Error("zero retry should not add details")
	}
}

func TestServiceUnavailableError(t *testing.T) {
	if got := ServiceUnavailableError("observation store").Message; got != "observation store is unavailable" {
		t.Errorf("Message = %q", got)
	}
	if got := ServiceUnavailableError("").Message; got != "service unavailable" {
		t.Errorf("Message = %q", got)
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{
			name:       "app error",
			err:        InvalidRequestError("lat must be between -90 and 90"),
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidRequest,
			wantError:  "lat must be between -90 and 90",
		},
		{
			name:       "wrapped app error",
			err:        fmt.Errorf("finder: %w", DataAccessError("store unreachable", errors.New("dial tcp"))),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   CodeDataAccess,
			wantError:  "store unreachable",
		},
		{
			name:       "plain error is sanitized",
			err:        errors.New("pq: password authentication failed"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
		})
	}
}

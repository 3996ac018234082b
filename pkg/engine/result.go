package engine

import (
	"github.com/pocscan/pocscan/pkg/ordered"
)

// ScanResult is the record of one POC executed against one target. It is
// filled in by Executor.Execute and not modified afterwards.
type ScanResult struct {
	POCName string `json:"poc_name"`
	Target  string `json:"target"`
	Level   string `json:"level"`

	// Request echo.
	RequestMethod  string      `json:"request_method"`
	RequestURL     string      `json:"request_url"`
	RequestPath    string      `json:"request_path,omitempty"`
	RequestParams  ordered.Map `json:"request_params,omitempty"`
	RequestHeaders ordered.Map `json:"request_headers,omitempty"`
	RequestBody    string      `json:"request_body,omitempty"`

	// StatusCode is a string so that a failed request can leave it empty.
	StatusCode      string      `json:"status_code,omitempty"`
	ResponseHeaders ordered.Map `json:"response_headers,omitempty"`
	ResponseBody    string      `json:"response_body,omitempty"`
	ResponseTimeMs  int64       `json:"response_time_ms"`

	// TLS fields are only set for https targets.
	SSLProtocol  string `json:"ssl_protocol,omitempty"`
	CipherSuite  string `json:"cipher_suite,omitempty"`
	SSLVerified  bool   `json:"ssl_verified,omitzero"`
	SSLSubject   string `json:"ssl_subject,omitempty"`
	SSLIssuer    string `json:"ssl_issuer,omitempty"`
	SSLValidFrom string `json:"ssl_valid_from,omitempty"`
	SSLValidTo   string `json:"ssl_valid_to,omitempty"`

	Vulnerable bool   `json:"vulnerable"`
	Evidence   string `json:"evidence,omitempty"`
}

// Failed reports whether the probe could not be completed.
func (r *ScanResult) Failed() bool {
	return r != nil && !r.Vulnerable && len(r.Evidence) > 0 && r.StatusCode == ""
}

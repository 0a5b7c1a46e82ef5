package telephony

import (
	"errors"
	"testing"
)

func TestExtractCallInfo(t *testing.T) {
	tests := []struct {
		name    string
		headers []SIPHeader
		want    CallInfo
		wantErr error
	}{
		{
			name: "business header plus asserted identity",
			headers: []SIPHeader{
				{Name: "X-Business-Id", Value: "biz-42"},
				{Name: "P-Asserted-Identity", Value: "<sip:+15551234567@carrier.example>"},
				{Name: "From", Value: "<sip:anonymous@anonymous.invalid>"},
			},
			want: CallInfo{BusinessID: "biz-42", CallerPhone: "+15551234567"},
		},
		{
			name: "falls back to From",
			headers: []SIPHeader{
				{Name: "x-business-id", Value: "biz-42"},
				{Name: "From", Value: `"Jane" <sip:+15559876543@10.0.0.1>;tag=abc`},
			},
			want: CallInfo{BusinessID: "biz-42", CallerPhone: "+15559876543"},
		},
		{
			name: "bare number",
			headers: []SIPHeader{
				{Name: "X-Business-Id", Value: "biz-1"},
				{Name: "From", Value: "+15550001111"},
			},
			want: CallInfo{BusinessID: "biz-1", CallerPhone: "+15550001111"},
		},
		{
			name: "missing business header",
			headers: []SIPHeader{
				{Name: "From", Value: "sip:+1555@x"},
			},
			wantErr: ErrNoBusinessHeader,
		},
		{
			name: "missing caller",
			headers: []SIPHeader{
				{Name: "X-Business-Id", Value: "biz-1"},
			},
			wantErr: ErrNoCallerNumber,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractCallInfo(tt.headers)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseSIPAddressShapes(t *testing.T) {
	tests := map[string]string{
		"sip:+1555@host":                   "+1555",
		"tel:+1555":                        "+1555",
		"<sip:+1555@host>;tag=9":           "+1555",
		`"Display Name" <sip:+1555@h:506>`: "+1555",
		"+1555;user=phone":                 "+1555",
	}
	for in, want := range tests {
		if got := parseSIPAddress(in); got != want {
			t.Fatalf("parseSIPAddress(%q) = %q, want %q", in, got, want)
		}
	}
}

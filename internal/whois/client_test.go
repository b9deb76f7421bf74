package whois

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/raysh454/vigil/internal/testutil"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(Config{TimeoutSeconds: 5}, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

// fakeWhoisServer answers every connection with a fixed response after
// reading the query line.
func fakeWhoisServer(t *testing.T, response string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				if _, err := bufio.NewReader(c).ReadString('\n'); err != nil {
					return
				}
				_, _ = io.WriteString(c, response)
			}(conn)
		}
	}()

	return ln.Addr().String()
}

// ─── Lookup ────────────────────────────────────────────────────────────

func TestLookup_DirectFollowsReferral(t *testing.T) {
	t.Parallel()

	registryResponse := `   Domain Name: EXAMPLE.COM
   Registry Domain ID: 2336799_DOMAIN_COM-VRSN
   Registrar: Example Registrar, Inc.
   Updated Date: 2025-08-14T07:01:44Z
   Creation Date: 1995-08-14T04:00:00Z
   Registry Expiry Date: 2026-08-13T04:00:00Z
   Name Server: A.IANA-SERVERS.NET
   Name Server: B.IANA-SERVERS.NET
   DNSSEC: signedDelegation
`
	registryAddr := fakeWhoisServer(t, registryResponse)
	ianaAddr := fakeWhoisServer(t, "refer:        "+registryAddr+"\n\ndomain:       COM\n")

	c := newTestClient(t)
	c.ianaAddr = ianaAddr

	rec, err := c.Lookup(context.Background(), "Example.COM")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	if rec.Method != "port43" {
		t.Errorf("expected method port43, got %q", rec.Method)
	}
	if rec.DomainName != "example.com" {
		t.Errorf("expected lowercased domain, got %q", rec.DomainName)
	}
	if rec.Registrar != "Example Registrar, Inc." {
		t.Errorf("unexpected registrar %q", rec.Registrar)
	}
	if rec.CreationDate != "1995-08-14T04:00:00Z" {
		t.Errorf("unexpected creation date %q", rec.CreationDate)
	}
	if rec.ExpirationDate != "2026-08-13T04:00:00Z" {
		t.Errorf("unexpected expiration date %q", rec.ExpirationDate)
	}
	if rec.UpdatedDate != "2025-08-14T07:01:44Z" {
		t.Errorf("unexpected updated date %q", rec.UpdatedDate)
	}
	wantNS := []string{"a.iana-servers.net", "b.iana-servers.net"}
	if len(rec.NameServers) != len(wantNS) {
		t.Fatalf("expected %d name servers, got %v", len(wantNS), rec.NameServers)
	}
	for i, ns := range wantNS {
		if rec.NameServers[i] != ns {
			t.Errorf("name server %d: expected %s, got %s", i, ns, rec.NameServers[i])
		}
	}
	if rec.RawOutput == "" {
		t.Error("expected raw output to be kept")
	}
}

func TestLookup_NoReferralParsesDirectly(t *testing.T) {
	t.Parallel()

	response := `Domain: example.de
Registrar: Hosting Example GmbH
Created: 2010-05-01
Nserver: ns1.example.de
Nserver: ns2.example.de
`
	c := newTestClient(t)
	c.ianaAddr = fakeWhoisServer(t, response)

	rec, err := c.Lookup(context.Background(), "example.de")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.Method != "port43" {
		t.Errorf("expected method port43, got %q", rec.Method)
	}
	if rec.Registrar != "Hosting Example GmbH" {
		t.Errorf("unexpected registrar %q", rec.Registrar)
	}
	if rec.CreationDate != "2010-05-01" {
		t.Errorf("unexpected creation date %q", rec.CreationDate)
	}
	if len(rec.NameServers) != 2 || rec.NameServers[0] != "ns1.example.de" {
		t.Errorf("unexpected name servers %v", rec.NameServers)
	}
}

func TestLookup_AllMethodsFailed(t *testing.T) {
	t.Parallel()

	// A freshly closed listener gives a port that refuses connections.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	deadAddr := ln.Addr().String()
	ln.Close()

	c := newTestClient(t)
	c.ianaAddr = deadAddr
	c.whoisBinary = "vigil-whois-missing-binary"

	_, err = c.Lookup(context.Background(), "example.com")
	if err == nil {
		t.Fatal("expected error when every method fails")
	}
	msg := err.Error()
	for _, want := range []string{"all whois lookup methods failed", "Method 1 (port43)", "Method 2 (system)"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestLookup_BlankResponseTreatedAsFailure(t *testing.T) {
	t.Parallel()

	c := newTestClient(t)
	c.ianaAddr = fakeWhoisServer(t, "\r\n   \r\n")
	c.whoisBinary = "vigil-whois-missing-binary"

	_, err := c.Lookup(context.Background(), "example.com")
	if err == nil {
		t.Fatal("expected error for blank response")
	}
	if !strings.Contains(err.Error(), "empty response") {
		t.Errorf("error %q should mention the empty response", err.Error())
	}
}

// ─── Parsing ───────────────────────────────────────────────────────────

func TestParseResponse_FieldVariants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want Record
	}{
		{
			name: "sponsoring registrar",
			raw:  "Sponsoring Registrar: JPRS Example\n",
			want: Record{Registrar: "JPRS Example"},
		},
		{
			name: "expires",
			raw:  "Expires: 2027-01-01\n",
			want: Record{ExpirationDate: "2027-01-01"},
		},
		{
			name: "registration time",
			raw:  "Registration Time: 2020-03-04 12:00:00\n",
			want: Record{CreationDate: "2020-03-04 12:00:00"},
		},
		{
			name: "last updated",
			raw:  "Last Updated: 2024-11-30\n",
			want: Record{UpdatedDate: "2024-11-30"},
		},
		{
			name: "uppercase name server",
			raw:  "NAME SERVER: NS1.FOO.BAR\n",
			want: Record{NameServers: []string{"ns1.foo.bar"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := parseResponse("example.com", tc.raw)
			if rec.Registrar != tc.want.Registrar {
				t.Errorf("registrar: expected %q, got %q", tc.want.Registrar, rec.Registrar)
			}
			if rec.CreationDate != tc.want.CreationDate {
				t.Errorf("creation date: expected %q, got %q", tc.want.CreationDate, rec.CreationDate)
			}
			if rec.ExpirationDate != tc.want.ExpirationDate {
				t.Errorf("expiration date: expected %q, got %q", tc.want.ExpirationDate, rec.ExpirationDate)
			}
			if rec.UpdatedDate != tc.want.UpdatedDate {
				t.Errorf("updated date: expected %q, got %q", tc.want.UpdatedDate, rec.UpdatedDate)
			}
			if len(tc.want.NameServers) != 0 {
				if len(rec.NameServers) != len(tc.want.NameServers) || rec.NameServers[0] != tc.want.NameServers[0] {
					t.Errorf("name servers: expected %v, got %v", tc.want.NameServers, rec.NameServers)
				}
			}
		})
	}
}

func TestParseResponse_TruncatesRawOutput(t *testing.T) {
	t.Parallel()

	rec := parseResponse("example.com", strings.Repeat("x", 1200))
	if len(rec.RawOutput) != rawOutputLimit {
		t.Errorf("expected raw output truncated to %d, got %d", rawOutputLimit, len(rec.RawOutput))
	}
}

func TestEnsurePort(t *testing.T) {
	t.Parallel()

	if got := ensurePort("whois.nic.io"); got != "whois.nic.io:43" {
		t.Errorf("expected default port appended, got %q", got)
	}
	if got := ensurePort("127.0.0.1:4343"); got != "127.0.0.1:4343" {
		t.Errorf("expected explicit port kept, got %q", got)
	}
}

func TestNewClient_RejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(DefaultConfig(), nil); err == nil {
		t.Error("expected error for nil logger")
	}
	if _, err := NewClient(Config{TimeoutSeconds: 0}, &testutil.DummyLogger{}); err == nil {
		t.Error("expected error for zero timeout")
	}
}

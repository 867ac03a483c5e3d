// Package resolver implements identity resolution from a handle or DID
// to a labeler's subscribeLabels host (§6's "Resolver" component).
//
// Grounded on original_source/src/lookup.rs's resolution order (DNS
// TXT, then HTTPS well-known, then a DID document fetch against the
// PLC directory or a did:web domain), using github.com/miekg/dns for
// the DNS step the way gravwell/gravwell does, and net/http plus
// encoding/json for the HTTPS steps the way
// bsky.watch/labeler/account/plc.go fetches DID documents.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	dnsTimeout  = 5 * time.Second
	httpTimeout = 10 * time.Second

	defaultPLCDirectory = "plc.directory"
)

// Identity is the resolved result for one handle-or-DID lookup target.
type Identity struct {
	// DID is the fully resolved decentralized identifier.
	DID string
	// Handle is the handle originally supplied, if any, or the handle
	// recovered from the DID document's alsoKnownAs list.
	Handle string
	// LabelerHost is the service endpoint tagged #atproto_labeler,
	// with its scheme and trailing slashes stripped — this is the value
	// the stream driver dials.
	LabelerHost string
	// PDSHost is the service endpoint tagged #atproto_pds, included for
	// informational CLI output; it is not used by this client.
	PDSHost string
}

// didDocument is the subset of a DID document this resolver consults.
type didDocument struct {
	ID          string       `json:"id"`
	AlsoKnownAs []string     `json:"alsoKnownAs"`
	Service     []didService `json:"service"`
}

type didService struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// Resolve turns a handle or DID into an Identity. plcDirectory is the
// host of the PLC directory to consult for did:plc identifiers (empty
// defaults to plc.directory, per §6's config table).
func Resolve(ctx context.Context, handleOrDID string, plcDirectory string) (*Identity, error) {
	if plcDirectory == "" {
		plcDirectory = defaultPLCDirectory
	}

	var did, handle string
	if strings.HasPrefix(handleOrDID, "did:") {
		did = handleOrDID
	} else {
		handle = handleOrDID
		resolvedDID, err := resolveHandleToDID(ctx, handle)
		if err != nil {
			return nil, fmt.Errorf("resolving handle %q: %w", handle, err)
		}
		did = resolvedDID
	}

	doc, err := fetchDIDDocument(ctx, did, plcDirectory)
	if err != nil {
		return nil, fmt.Errorf("fetching DID document for %q: %w", did, err)
	}

	if handle == "" {
		handle = extractHandle(doc)
	}

	labelerHost := extractServiceEndpoint(doc, "#atproto_labeler", "AtprotoLabeler")
	if labelerHost == "" {
		return nil, &ResolutionError{Context: "service endpoint", Err: fmt.Errorf("DID document for %q has no #atproto_labeler service", did)}
	}

	labelerHost = strings.TrimSuffix(labelerHost, "/")
	if i := strings.Index(labelerHost, "://"); i >= 0 {
		labelerHost = labelerHost[i+len("://"):]
	}

	return &Identity{
		DID:         did,
		Handle:      handle,
		LabelerHost: labelerHost,
		PDSHost:     strings.TrimSuffix(extractServiceEndpoint(doc, "#atproto_pds", "AtprotoPersonalDataServer"), "/"),
	}, nil
}

// resolveHandleToDID implements the two-step handle resolution order:
// a DNS TXT record at _atproto.<handle> first, falling back to the
// HTTPS /.well-known/atproto-did endpoint.
func resolveHandleToDID(ctx context.Context, handle string) (string, error) {
	if did, err := resolveHandleViaDNS(ctx, handle); err == nil {
		return did, nil
	}
	return resolveHandleViaHTTPWellKnown(ctx, handle)
}

func resolveHandleViaDNS(ctx context.Context, handle string) (string, error) {
	client := new(dns.Client)
	client.Timeout = dnsTimeout

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn("_atproto."+handle), dns.TypeTXT)

	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return "", &ResolutionError{Context: "dns config", Err: err}
	}

	server := conf.Servers[0] + ":" + conf.Port
	resp, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return "", &ResolutionError{Context: "dns exchange", Err: err}
	}

	for _, rr := range resp.Answer {
		txt, ok := rr.(*dns.TXT)
		if !ok {
			continue
		}
		for _, s := range txt.Txt {
			if did, ok := strings.CutPrefix(s, "did="); ok {
				return did, nil
			}
		}
	}

	return "", &ResolutionError{Context: "dns", Err: fmt.Errorf("no did= TXT record for %s", handle)}
}

func resolveHandleViaHTTPWellKnown(ctx context.Context, handle string) (string, error) {
	u := fmt.Sprintf("https://%s/.well-known/atproto-did", handle)
	body, err := httpGet(ctx, u)
	if err != nil {
		return "", &ResolutionError{Context: "well-known", Err: err}
	}
	did := strings.TrimSpace(string(body))
	if !strings.HasPrefix(did, "did:") {
		return "", &ResolutionError{Context: "well-known", Err: fmt.Errorf("unexpected response body %q", did)}
	}
	return did, nil
}

// fetchDIDDocument dispatches on the DID method: did:plc documents come
// from the PLC directory, did:web documents from the named domain's
// own .well-known/did.json.
func fetchDIDDocument(ctx context.Context, did string, plcDirectory string) (*didDocument, error) {
	u, err := didDocumentURL(did, plcDirectory)
	if err != nil {
		return nil, err
	}

	body, err := httpGet(ctx, u)
	if err != nil {
		return nil, err
	}

	var doc didDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing did document: %w", err)
	}
	if doc.ID != did {
		return nil, fmt.Errorf("did document id %q does not match requested did %q", doc.ID, did)
	}
	return &doc, nil
}

// didDocumentURL computes where to fetch did's document from: the PLC
// directory for did:plc, or the named domain's own well-known path for
// did:web (§6's Resolver contract).
func didDocumentURL(did string, plcDirectory string) (string, error) {
	switch {
	case strings.HasPrefix(did, "did:plc:"):
		return fmt.Sprintf("https://%s/%s", plcDirectory, did), nil
	case strings.HasPrefix(did, "did:web:"):
		domain := strings.TrimPrefix(did, "did:web:")
		return fmt.Sprintf("https://%s/.well-known/did.json", domain), nil
	default:
		return "", fmt.Errorf("unsupported did method in %q", did)
	}
}

func extractHandle(doc *didDocument) string {
	for _, aka := range doc.AlsoKnownAs {
		if handle, ok := strings.CutPrefix(aka, "at://"); ok {
			return handle
		}
	}
	return ""
}

func extractServiceEndpoint(doc *didDocument, idSuffix, typeName string) string {
	for _, svc := range doc.Service {
		if strings.HasSuffix(svc.ID, idSuffix) && svc.Type == typeName {
			return svc.ServiceEndpoint
		}
	}
	return ""
}

func httpGet(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: httpTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, u)
	}

	return io.ReadAll(resp.Body)
}

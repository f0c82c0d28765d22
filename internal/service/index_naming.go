package service

import (
	"regexp"
	"strings"
)

const (
	maxIndexNameLen = 45
	maxNamespaceLen = 64
)

var (
	indexNameStrip    = regexp.MustCompile(`[^a-z0-9-]`)
	indexNameHyphens  = regexp.MustCompile(`-+`)
	namespaceReplace  = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	indexNameAlnumRE  = regexp.MustCompile(`^[a-z0-9]`)
)

// IndexNamespaceResolver derives the vector index name and namespace for an
// owner/conversation pair. Resolution is a pure function: the same inputs
// always yield the same pair, so ingestion and retrieval never diverge.
type IndexNamespaceResolver struct {
	indexName string
}

// NewIndexNamespaceResolver takes the shared index name all namespaces live
// under. The name is sanitized on every Resolve call, so callers may pass the
// raw configured value.
func NewIndexNamespaceResolver(indexName string) *IndexNamespaceResolver {
	return &IndexNamespaceResolver{indexName: indexName}
}

func (r *IndexNamespaceResolver) Resolve(ownerID, conversationID string) (indexName, namespace string) {
	return SanitizeIndexName(r.indexName), r.resolveNamespace(ownerID, conversationID)
}

func (r *IndexNamespaceResolver) resolveNamespace(ownerID, conversationID string) string {
	// If the combined value would exceed the backend limit, only the
	// conversation portion is truncated, never the owner portion.
	if len(ownerID)+1+len(conversationID) > maxNamespaceLen {
		keep := maxNamespaceLen - len(ownerID) - 1
		if keep < 0 {
			keep = 0
		}
		if keep < len(conversationID) {
			conversationID = conversationID[:keep]
		}
	}
	return SanitizeNamespace(ownerID + "-" + conversationID)
}

// SanitizeIndexName normalizes a raw name to the backend's index constraints:
// lowercase [a-z0-9-], leading alphanumeric, at most 45 characters.
func SanitizeIndexName(raw string) string {
	name := strings.ToLower(raw)
	name = indexNameStrip.ReplaceAllString(name, "")
	name = indexNameHyphens.ReplaceAllString(name, "-")

	if name != "" && !indexNameAlnumRE.MatchString(name) {
		name = "p" + name
	}
	if len(name) < 3 {
		name = "idx-" + name
	}
	if len(name) > maxIndexNameLen {
		name = name[:maxIndexNameLen]
	}
	return name
}

// SanitizeNamespace replaces characters outside [A-Za-z0-9_-] with '_' and
// caps the result at 64 characters.
func SanitizeNamespace(raw string) string {
	ns := namespaceReplace.ReplaceAllString(raw, "_")
	if len(ns) > maxNamespaceLen {
		ns = ns[:maxNamespaceLen]
	}
	return ns
}

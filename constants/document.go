package constants

import "strings"

// DocumentKind distinguishes the two document types of an analysis unit.
type DocumentKind string

const (
	KindDisclosure DocumentKind = "DISCLOSURE"
	KindInspection DocumentKind = "INSPECTION"
)

// ParseDocumentKind normalizes a client-supplied kind string.
// Returns "" for anything that is not one of the two supported kinds.
func ParseDocumentKind(s string) DocumentKind {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(KindDisclosure):
		return KindDisclosure
	case string(KindInspection):
		return KindInspection
	}
	return ""
}

// AllowedExtensions holds the file extensions accepted for submission.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

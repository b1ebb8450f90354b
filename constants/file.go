package constants

import "strings"

// FileKind is the extraction family a file extension dispatches to.
type FileKind string

const (
	KindImage   FileKind = "IMAGE"
	KindPDF     FileKind = "PDF"
	KindWord    FileKind = "WORD"
	KindExcel   FileKind = "EXCEL"
	KindText    FileKind = "TEXT"
	KindRTF     FileKind = "RTF"
	KindUnknown FileKind = "UNKNOWN"
)

var extKinds = map[string]FileKind{
	"jpg":  KindImage,
	"jpeg": KindImage,
	"png":  KindImage,
	"bmp":  KindImage,
	"tif":  KindImage,
	"tiff": KindImage,
	"gif":  KindImage,
	"webp": KindImage,
	"heic": KindImage,
	"heif": KindImage,
	"pdf":  KindPDF,
	"docx": KindWord,
	"doc":  KindWord,
	"xlsx": KindExcel,
	"xls":  KindExcel,
	"txt":  KindText,
	"csv":  KindText,
	"rtf":  KindRTF,
}

// AllowedExtensions holds the extensions picked up by directory scans and the inbox watcher.
var AllowedExtensions = func() map[string]struct{} {
	m := make(map[string]struct{}, len(extKinds))
	for ext := range extKinds {
		m[ext] = struct{}{}
	}
	return m
}()

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// KindForExt maps an extension (with or without dot) to its FileKind.
func KindForExt(ext string) FileKind {
	if k, ok := extKinds[NormalizeExt(ext)]; ok {
		return k
	}
	return KindUnknown
}

// RawTextLimit caps TicketInfo.raw_text.
const RawTextLimit = 1500

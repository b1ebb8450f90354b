package doctext

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// decodeText reads data as UTF-8 and falls back to Latin-1, which cannot
// fail, when the bytes are not valid UTF-8.
func decodeText(data []byte) (text string, latin1 bool) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), false
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), ""), false
	}
	return string(s), true
}

func extractPlain(data []byte, filename string) Result {
	text, latin1 := decodeText(data)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return failure(constants.KindText, KindEmpty, filename, nil)
	}
	res := direct(text, constants.MethodText)
	if latin1 {
		res.Warnings = append(res.Warnings, "decoded as latin-1")
	}
	return res
}

func extractRTF(data []byte, filename string) Result {
	raw, _ := decodeText(data)
	text := tidy(StripRTF(raw))
	if text == "" {
		return failure(constants.KindRTF, KindEmpty, filename, nil)
	}
	return direct(text, constants.MethodRTF)
}

// extractUnknown accepts content that reads as text and rejects binaries.
func extractUnknown(data []byte, filename, ext string) Result {
	if !utf8.Valid(bytes.TrimPrefix(data, utf8BOM)) || looksBinary(data) {
		return failure(constants.KindUnknown, KindUnsupported, filename, errBinary)
	}
	text, _ := decodeText(data)
	if strings.TrimSpace(text) == "" {
		return failure(constants.KindUnknown, KindEmpty, filename, nil)
	}
	return direct(text, constants.MethodRaw)
}

func looksBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	ctl := 0
	for _, b := range data {
		if b == 0 {
			return true
		}
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' && b != '\f' {
			ctl++
		}
	}
	return ctl*10 > len(data)
}

var reBlankRuns = regexp.MustCompile(`\n[ \t]*\n([ \t]*\n)+`)

func tidy(s string) string {
	return strings.TrimSpace(reBlankRuns.ReplaceAllString(s, "\n\n"))
}

// rtfDestinations are groups whose content is not document text.
var rtfDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "object": true, "header": true, "footer": true,
	"headerl": true, "headerr": true, "footerl": true, "footerr": true,
	"listtable": true, "listoverridetable": true, "rsidtbl": true,
	"themedata": true, "colorschememapping": true, "latentstyles": true,
	"datastore": true, "xmlnstbl": true, "generator": true, "fldinst": true,
}

var rtfSymbols = map[string]string{
	"par":       "\n",
	"line":      "\n",
	"row":       "\n",
	"sect":      "\n\n",
	"page":      "\n\n",
	"tab":       "\t",
	"cell":      "\t",
	"emdash":    "\u2014",
	"endash":    "\u2013",
	"bullet":    "•",
	"lquote":    "‘",
	"rquote":    "’",
	"ldblquote": "“",
	"rdblquote": "”",
	"emspace":   " ",
	"enspace":   " ",
	"qmspace":   " ",
}

// StripRTF removes RTF control words and groups and returns the plain text.
// \'hh escapes are read as cp1252 and \uN as a code point.
func StripRTF(s string) string {
	type frame struct {
		skip bool
		uc   int
	}
	var (
		out   strings.Builder
		stack []frame
		skip  bool
		owed  int // fallback characters still to drop after a \uN
	)
	uc := 1
	emit := func(r rune) {
		if skip {
			return
		}
		if owed > 0 {
			owed--
			return
		}
		out.WriteRune(r)
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch c {
		case '{':
			stack = append(stack, frame{skip: skip, uc: uc})
			i++
		case '}':
			if n := len(stack); n > 0 {
				skip, uc = stack[n-1].skip, stack[n-1].uc
				stack = stack[:n-1]
			}
			owed = 0
			i++
		case '\r', '\n':
			i++
		case '\\':
			i++
			if i >= len(s) {
				break
			}
			c = s[i]
			switch {
			case c == '\\' || c == '{' || c == '}':
				emit(rune(c))
				i++
			case c == '*':
				skip = true
				i++
			case c == '~':
				emit(' ')
				i++
			case c == '_':
				emit('-')
				i++
			case c == '\r' || c == '\n':
				emit('\n')
				i++
			case c == '\'':
				if i+3 <= len(s) {
					if b, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
						emit(charmap.Windows1252.DecodeByte(byte(b)))
					}
				}
				i += 3
			case isASCIILetter(c):
				j := i
				for j < len(s) && isASCIILetter(s[j]) {
					j++
				}
				word := s[i:j]
				k := j
				if k < len(s) && s[k] == '-' {
					k++
				}
				for k < len(s) && s[k] >= '0' && s[k] <= '9' {
					k++
				}
				param, hasParam := 0, false
				if k > j && s[k-1] != '-' {
					if v, err := strconv.Atoi(s[j:k]); err == nil {
						param, hasParam = v, true
					}
				} else {
					k = j
				}
				if k < len(s) && s[k] == ' ' {
					k++
				}
				i = k

				switch {
				case rtfDestinations[word]:
					skip = true
				case skip:
				case word == "uc" && hasParam:
					uc = param
				case word == "u" && hasParam:
					if param < 0 {
						param += 65536
					}
					emit(rune(param))
					owed = uc
				default:
					if sym, ok := rtfSymbols[word]; ok {
						for _, r := range sym {
							emit(r)
						}
					}
				}
			default:
				i++
			}
		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			if unicode.IsPrint(r) || r == '\t' {
				emit(r)
			}
			i += size
		}
	}
	return out.String()
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

package locale

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sandertv/gophertunnel/minecraft/text"
	"golang.org/x/text/language"
)

// localeData represents a mapping of translation keys to their respective values for a specific language.
type localeData map[string]string

var (
	localesMu sync.RWMutex
	// locales is a map of registered locales keyed by language tags.
	locales = make(map[language.Tag]localeData)
)

// Register registers a new locale from the language file in the directory passed. The file is named after
// the language tag, for example "en.lang".
func Register(lang language.Tag, dir string) error {
	file, err := os.Open(fmt.Sprintf("%s/%s.lang", dir, lang.String()))
	if err != nil {
		return fmt.Errorf("could not open lang file: %w", err)
	}
	defer file.Close()
	return Load(lang, file)
}

// Load reads "key=value" lines from r and registers them under the language passed. Empty lines and lines
// starting with '#' are ignored, and "\n" in a value is a line break.
func Load(lang language.Tag, r io.Reader) error {
	data := make(localeData)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		data[strings.TrimSpace(key)] = strings.ReplaceAll(strings.TrimSpace(value), `\n`, "\n")
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading lang file: %w", err)
	}

	localesMu.Lock()
	locales[lang] = data
	localesMu.Unlock()
	return nil
}

// Translate translates a key to English and colours the result. Args are name/value pairs, each
// replacing the {name} placeholder in the translation.
func Translate(key string, args ...any) string {
	return Colour(TranslateL(language.English, key, args...))
}

// Colour converts the colour tags in s into formatting codes.
func Colour(s string) string {
	return text.Colourf("%s", s)
}

// TranslateL translates a key to a specified language, falling back to English when the language is not
// registered. Placeholders without a matching argument are left untouched.
func TranslateL(lang language.Tag, key string, args ...any) string {
	localesMu.RLock()
	locale, ok := locales[lang]
	if !ok {
		locale = locales[language.English]
	}
	translation, ok := locale[key]
	localesMu.RUnlock()
	if !ok {
		return fmt.Sprintf("missing translation for '%s'", key)
	}
	return Format(translation, args...)
}

// Format replaces the {name} placeholders in s using the name/value pairs passed.
func Format(s string, args ...any) string {
	if len(args) == 0 {
		return s
	}
	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{"+fmt.Sprint(args[i])+"}", fmt.Sprint(args[i+1]))
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

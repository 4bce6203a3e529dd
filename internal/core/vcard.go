package core

import (
	"context"
	"log/slog"
	"strings"
)

// PhotoFetcher retrieves a photo and returns it base64-encoded.
// Errors are expected to be *FetchError; the builder treats any error as
// "no photo" and carries on.
type PhotoFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Builder turns records into vCard 3.0 text using a fixed ColumnMapping.
type Builder struct {
	resolver *Resolver
	photos   PhotoFetcher
	escape   bool
	logger   *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithPhotoFetcher enables PHOTO lines. Without a fetcher, mapped photo URLs
// are ignored.
func WithPhotoFetcher(f PhotoFetcher) BuilderOption {
	return func(b *Builder) { b.photos = f }
}

// WithEscaping turns on RFC 6350 text escaping of \ , ; and newlines in
// name, organization, title, note and address values. Off by default, which
// writes values verbatim.
func WithEscaping(on bool) BuilderOption {
	return func(b *Builder) { b.escape = on }
}

// WithLogger sets the logger used for photo warnings.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a builder for mapping.
func NewBuilder(mapping *ColumnMapping, opts ...BuilderOption) *Builder {
	b := &Builder{
		resolver: mapping.Resolver(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the resolved first and last name of rec.
func (b *Builder) Name(rec Record) (first, last string) {
	return b.resolver.Resolve(rec, FieldFirstName), b.resolver.Resolve(rec, FieldLastName)
}

// Build renders rec. It returns false, and no text, when First Name or Last
// Name resolves empty. A failed photo fetch only drops the PHOTO line.
func (b *Builder) Build(ctx context.Context, rec Record) (string, bool) {
	get := func(tag FieldTag) string { return b.resolver.Resolve(rec, tag) }

	first, last := get(FieldFirstName), get(FieldLastName)
	if first == "" || last == "" {
		return "", false
	}

	var sb strings.Builder
	line := func(prop, value string) {
		sb.WriteString(prop)
		sb.WriteByte(':')
		sb.WriteString(value)
		sb.WriteByte('\n')
	}
	text := b.text

	line("BEGIN", "VCARD")
	line("VERSION", "3.0")
	line("N", text(last)+";"+text(first)+";;;")
	line("FN", text(strings.TrimSpace(first+" "+last)))

	optional := []struct {
		prop  string
		tag   FieldTag
		isTxt bool
	}{
		{"TEL;TYPE=CELL", FieldPhoneMobile, false},
		{"TEL;TYPE=WORK", FieldPhoneWork, false},
		{"EMAIL;TYPE=INTERNET", FieldEmailWork, false},
		{"EMAIL;TYPE=HOME", FieldEmailHome, false},
		{"ORG", FieldOrganization, true},
		{"TITLE", FieldTitle, true},
		{"URL", FieldWebsite, false},
		{"BDAY", FieldBirthday, false},
	}
	for _, o := range optional {
		v := get(o.tag)
		if v == "" {
			continue
		}
		if o.isTxt {
			v = text(v)
		}
		line(o.prop, v)
	}

	if url := get(FieldPhotoURL); url != "" {
		if encoded, ok := b.photo(ctx, rec, url); ok {
			line("PHOTO;ENCODING=b;TYPE=JPEG", encoded)
		}
	}

	if notes := get(FieldNotes); notes != "" {
		line("NOTE", text(notes))
	}

	addr := []string{get(FieldStreet), get(FieldCity), get(FieldState), get(FieldZIP), get(FieldCountry)}
	if strings.Join(addr, "") != "" {
		for i := range addr {
			addr[i] = text(addr[i])
		}
		line("ADR;TYPE=HOME", ";;"+strings.Join(addr, ";"))
	}

	line("END", "VCARD")
	return sb.String(), true
}

func (b *Builder) photo(ctx context.Context, rec Record, url string) (string, bool) {
	if b.photos == nil {
		b.logger.Debug("photo url ignored, fetching disabled", "url", url, "line", rec.Line())
		return "", false
	}
	encoded, err := b.photos.Fetch(ctx, url)
	if err != nil {
		b.logger.Warn("could not load photo", "url", url, "line", rec.Line(), "error", err)
		return "", false
	}
	if encoded == "" {
		b.logger.Warn("could not load photo", "url", url, "line", rec.Line(), "error", "empty response")
		return "", false
	}
	return encoded, true
}

func (b *Builder) text(v string) string {
	if !b.escape {
		return v
	}
	return EscapeText(v)
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", `\,`,
	";", `\;`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
)

// EscapeText applies RFC 6350 section 3.4 escaping to a text value.
func EscapeText(v string) string {
	return textEscaper.Replace(v)
}

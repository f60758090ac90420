// Package subtitle submits subtitle generation jobs and fetches their results.
//
// Job parameters travel as query string values, so they are kept in an open
// string map rather than a fixed struct. Only "appid" is checked locally.
package subtitle

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/soypete/volcasr/pkg/wire"
)

// Parameter names understood by the service
const (
	ParamAppID             = "appid"
	ParamWordsPerLine      = "words_per_line"
	ParamMaxLines          = "max_lines"
	ParamUseITN            = "use_itn"
	ParamLanguage          = "language"
	ParamCaptionType       = "caption_type"
	ParamUsePunc           = "use_punc"
	ParamUseDDC            = "use_ddc"
	ParamBoostingTableID   = "boosting_table_id"
	ParamBoostingTableName = "boosting_table_name"
	ParamASRAppID          = "asr_appid"
	ParamWithSpeakerInfo   = "with_speaker_info"
)

// Source is the audio a job runs on: a URLSource or a BinarySource
type Source interface {
	isSource()
}

// URLSource points the service at remotely hosted audio
type URLSource string

// BinarySource uploads audio bytes. Type is the media subtype sent as
// "audio/<Type>".
type BinarySource struct {
	Type string
	Data []byte
}

func (URLSource) isSource()    {}
func (BinarySource) isSource() {}

// FromFile reads a local file, taking the media type from its extension
func FromFile(path string) (BinarySource, error) {
	typ := extension(path)
	if typ == "" {
		return BinarySource{}, wire.Errorf(wire.KindNoExtension, "read subtitle source",
			fmt.Errorf("cannot derive media type from %q", path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return BinarySource{}, wire.Errorf(wire.KindIO, "read subtitle source", err)
	}

	return BinarySource{Type: typ, Data: data}, nil
}

// extension returns the extension without its dot. A leading dot marks a
// hidden file, not an extension.
func extension(path string) string {
	name := strings.TrimPrefix(filepath.Base(path), ".")
	return strings.TrimPrefix(filepath.Ext(name), ".")
}

// Request is a validated subtitle job
type Request struct {
	params map[string]string
	source Source
}

// Params returns a copy of the job parameters
func (r Request) Params() map[string]string {
	return cloneParams(r.params)
}

// Source returns the audio source
func (r Request) Source() Source {
	return r.source
}

// AppID returns the appid parameter
func (r Request) AppID() string {
	return r.params[ParamAppID]
}

func (r Request) query() url.Values {
	q := url.Values{}
	for k, v := range r.params {
		q.Set(k, v)
	}
	return q
}

// Builder accumulates parameters and a source. Setters return a modified
// copy and never touch the receiver's map.
type Builder struct {
	params map[string]string
	source Source
}

// NewBuilder returns an empty Builder
func NewBuilder() Builder {
	return Builder{}
}

// Param sets an arbitrary parameter, replacing any earlier value
func (b Builder) Param(key, value string) Builder {
	params := cloneParams(b.params)
	params[key] = value
	b.params = params
	return b
}

func (b Builder) AppID(v string) Builder             { return b.Param(ParamAppID, v) }
func (b Builder) Language(v string) Builder          { return b.Param(ParamLanguage, v) }
func (b Builder) CaptionType(v string) Builder       { return b.Param(ParamCaptionType, v) }
func (b Builder) BoostingTableID(v string) Builder   { return b.Param(ParamBoostingTableID, v) }
func (b Builder) BoostingTableName(v string) Builder { return b.Param(ParamBoostingTableName, v) }
func (b Builder) ASRAppID(v string) Builder          { return b.Param(ParamASRAppID, v) }

func (b Builder) WordsPerLine(n int) Builder { return b.Param(ParamWordsPerLine, strconv.Itoa(n)) }
func (b Builder) MaxLines(n int) Builder     { return b.Param(ParamMaxLines, strconv.Itoa(n)) }

func (b Builder) UseITN(v bool) Builder          { return b.Param(ParamUseITN, wire.FromBool(v).String()) }
func (b Builder) UsePunc(v bool) Builder         { return b.Param(ParamUsePunc, wire.FromBool(v).String()) }
func (b Builder) UseDDC(v bool) Builder          { return b.Param(ParamUseDDC, wire.FromBool(v).String()) }
func (b Builder) WithSpeakerInfo(v bool) Builder { return b.Param(ParamWithSpeakerInfo, wire.FromBool(v).String()) }

// Source sets the audio source
func (b Builder) Source(s Source) Builder {
	b.source = s
	return b
}

// Build requires an appid parameter and a source
func (b Builder) Build() (Request, error) {
	var missing []string
	if _, ok := b.params[ParamAppID]; !ok {
		missing = append(missing, ParamAppID)
	}
	if b.source == nil {
		missing = append(missing, "source")
	}
	if len(missing) > 0 {
		return Request{}, wire.Errorf(wire.KindRequestBuild, "build subtitle request",
			fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")))
	}

	switch s := b.source.(type) {
	case URLSource:
		if s == "" {
			return Request{}, wire.Errorf(wire.KindRequestBuild, "build subtitle request", errors.New("empty source url"))
		}
	case BinarySource:
		if s.Type == "" {
			return Request{}, wire.Errorf(wire.KindRequestBuild, "build subtitle request", errors.New("binary source has no media type"))
		}
	}

	return Request{params: cloneParams(b.params), source: b.source}, nil
}

func cloneParams(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

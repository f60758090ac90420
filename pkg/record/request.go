// Package record submits audio transcription jobs and waits for their results
package record

import (
	"fmt"
	"strings"

	"github.com/soypete/volcasr/pkg/wire"
)

// Request is a validated transcription job. Only Builder.Build creates one.
type Request struct {
	App       App             `json:"app"`
	User      User            `json:"user"`
	Audio     Audio           `json:"audio"`
	Options   *RequestOptions `json:"request,omitempty"`
	Additions *Additions      `json:"additions,omitempty"`
}

// App identifies the caller's application
type App struct {
	AppID   string `json:"appid"`
	Token   string `json:"token"`
	Cluster string `json:"cluster"`
}

// User identifies the end user the audio belongs to
type User struct {
	UID string `json:"uid"`
}

// Audio describes the remote audio file
type Audio struct {
	URL     string  `json:"url"`
	Format  *string `json:"format,omitempty"`
	Codec   *string `json:"codec,omitempty"`
	Rate    *int    `json:"rate,omitempty"`
	Bits    *int    `json:"bits,omitempty"`
	Channel *int    `json:"channel,omitempty"`
}

// RequestOptions is sent only when at least one member is set
type RequestOptions struct {
	Callback          *string `json:"callback,omitempty"`
	BoostingTableName *string `json:"boosting_table_name,omitempty"`
}

// Additions carries processing flags. It is sent only when at least one
// member is set, and is echoed back in results.
type Additions struct {
	Language        *string       `json:"language,omitempty"`
	UseITN          *wire.Boolean `json:"use_itn,omitempty"`
	UsePunc         *wire.Boolean `json:"use_punc,omitempty"`
	UseDDC          *wire.Boolean `json:"use_ddc,omitempty"`
	WithSpeakerInfo *wire.Boolean `json:"with_speaker_info,omitempty"`
	EnableQuery     *wire.Boolean `json:"enable_query,omitempty"`
	ChannelSplit    *wire.Boolean `json:"channel_split,omitempty"`
}

// Builder accumulates request fields. Setters return a modified copy, so a
// partially filled Builder can be reused as a template.
type Builder struct {
	appID             *string
	token             *string
	cluster           *string
	uid               *string
	url               *string
	format            *string
	codec             *string
	rate              *int
	bits              *int
	channel           *int
	callback          *string
	boostingTableName *string
	language          *string
	useITN            *wire.Boolean
	usePunc           *wire.Boolean
	useDDC            *wire.Boolean
	withSpeakerInfo   *wire.Boolean
	enableQuery       *wire.Boolean
	channelSplit      *wire.Boolean
}

// NewBuilder returns an empty Builder
func NewBuilder() Builder {
	return Builder{}
}

func (b Builder) AppID(v string) Builder    { b.appID = &v; return b }
func (b Builder) Token(v string) Builder    { b.token = &v; return b }
func (b Builder) Cluster(v string) Builder  { b.cluster = &v; return b }
func (b Builder) UID(v string) Builder      { b.uid = &v; return b }
func (b Builder) URL(v string) Builder      { b.url = &v; return b }
func (b Builder) Format(v string) Builder   { b.format = &v; return b }
func (b Builder) Codec(v string) Builder    { b.codec = &v; return b }
func (b Builder) Rate(v int) Builder        { b.rate = &v; return b }
func (b Builder) Bits(v int) Builder        { b.bits = &v; return b }
func (b Builder) Channel(v int) Builder     { b.channel = &v; return b }
func (b Builder) Callback(v string) Builder { b.callback = &v; return b }
func (b Builder) Language(v string) Builder { b.language = &v; return b }

func (b Builder) BoostingTableName(v string) Builder { b.boostingTableName = &v; return b }

func (b Builder) UseITN(v bool) Builder          { b.useITN = flag(v); return b }
func (b Builder) UsePunc(v bool) Builder         { b.usePunc = flag(v); return b }
func (b Builder) UseDDC(v bool) Builder          { b.useDDC = flag(v); return b }
func (b Builder) WithSpeakerInfo(v bool) Builder { b.withSpeakerInfo = flag(v); return b }
func (b Builder) EnableQuery(v bool) Builder     { b.enableQuery = flag(v); return b }
func (b Builder) ChannelSplit(v bool) Builder    { b.channelSplit = flag(v); return b }

func flag(v bool) *wire.Boolean {
	w := wire.FromBool(v)
	return &w
}

// Build validates the required fields and assembles the request. Optional
// groups with no members set are left nil so they are omitted on the wire.
func (b Builder) Build() (Request, error) {
	var missing []string
	require := func(name string, v *string) string {
		if v == nil {
			missing = append(missing, name)
			return ""
		}
		return *v
	}

	req := Request{
		App: App{
			AppID:   require("appid", b.appID),
			Token:   require("token", b.token),
			Cluster: require("cluster", b.cluster),
		},
		User: User{
			UID: require("uid", b.uid),
		},
		Audio: Audio{
			URL:     require("url", b.url),
			Format:  b.format,
			Codec:   b.codec,
			Rate:    b.rate,
			Bits:    b.bits,
			Channel: b.channel,
		},
	}
	if len(missing) > 0 {
		return Request{}, wire.Errorf(wire.KindRequestBuild, "build record request",
			fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")))
	}

	if b.callback != nil || b.boostingTableName != nil {
		req.Options = &RequestOptions{
			Callback:          b.callback,
			BoostingTableName: b.boostingTableName,
		}
	}

	if b.language != nil || b.useITN != nil || b.usePunc != nil || b.useDDC != nil ||
		b.withSpeakerInfo != nil || b.enableQuery != nil || b.channelSplit != nil {
		req.Additions = &Additions{
			Language:        b.language,
			UseITN:          b.useITN,
			UsePunc:         b.usePunc,
			UseDDC:          b.useDDC,
			WithSpeakerInfo: b.withSpeakerInfo,
			EnableQuery:     b.enableQuery,
			ChannelSplit:    b.channelSplit,
		}
	}

	return req, nil
}

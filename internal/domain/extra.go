package domain

// ImageType describes the STT image type classification.
type ImageType struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Extra holds the provider specific metadata bag shared by items.
type Extra struct {
	NewsItemGUID    string     `json:"newsItem_guid,omitempty"`
	SttIDTypeTextID string     `json:"sttidtype_textid,omitempty"`
	CreatorName     string     `json:"creator_name,omitempty"`
	CreatorID       string     `json:"creator_id,omitempty"`
	Filename        string     `json:"filename,omitempty"`
	SttTopics       string     `json:"stt_topics,omitempty"`
	SttEvents       string     `json:"stt_events,omitempty"`
	WebPrio         *int       `json:"sttrating_webprio,omitempty"`
	ImageType       *ImageType `json:"imagetype,omitempty"`
}

package dto

// Wire shapes of the Graph API responses used by the instagram client.

type GraphTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type GraphMedia struct {
	ID           string `json:"id"`
	MediaType    string `json:"media_type"`
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Permalink    string `json:"permalink"`
	Timestamp    string `json:"timestamp"`
	Caption      string `json:"caption"`
}

type GraphCursors struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

type GraphPaging struct {
	Cursors GraphCursors `json:"cursors"`
	Next    string       `json:"next"`
}

// GraphMediaResponse is the media listing envelope. Data is nil when the
// field was absent from the body.
type GraphMediaResponse struct {
	Data   []GraphMedia `json:"data"`
	Paging *GraphPaging `json:"paging,omitempty"`
}

type GraphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	IsTransient  bool   `json:"is_transient"`
	FBTraceID    string `json:"fbtrace_id"`
}

type GraphErrorEnvelope struct {
	Error *GraphError `json:"error"`
}

// GraphPage is an entry of me/accounts for page-linked business tokens.
type GraphPage struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	InstagramBusinessAccount *struct {
		ID string `json:"id"`
	} `json:"instagram_business_account,omitempty"`
}

type GraphPagesResponse struct {
	Data []GraphPage `json:"data"`
}

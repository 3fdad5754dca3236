package jikan

// ImageSet holds the three poster resolutions Jikan serves per format
type ImageSet struct {
	ImageURL      string `json:"image_url"`
	SmallImageURL string `json:"small_image_url"`
	LargeImageURL string `json:"large_image_url"`
}

type Images struct {
	JPG  ImageSet `json:"jpg"`
	WebP ImageSet `json:"webp"`
}

// Poster returns the best available JPG poster URL.
func (i Images) Poster() string {
	switch {
	case i.JPG.LargeImageURL != "":
		return i.JPG.LargeImageURL
	case i.JPG.ImageURL != "":
		return i.JPG.ImageURL
	default:
		return i.WebP.LargeImageURL
	}
}

type Trailer struct {
	YoutubeID string `json:"youtube_id"`
	URL       string `json:"url"`
	EmbedURL  string `json:"embed_url"`
}

// Available reports whether the trailer points anywhere.
func (t Trailer) Available() bool {
	return t.YoutubeID != "" || t.URL != "" || t.EmbedURL != ""
}

// Entity is a named MyAnimeList resource (studio, genre, producer, ...)
type Entity struct {
	MalID int    `json:"mal_id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

// ExternalLink is a name/url pair used by the streaming and external endpoints
type ExternalLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Aired struct {
	From   *string `json:"from"`
	To     *string `json:"to"`
	String string  `json:"string"`
}

// Anime is a catalog item as returned by /anime, /seasons/now and /anime/{id}/full.
// Relations, Streaming and External are only populated by the full endpoint.
type Anime struct {
	MalID          int            `json:"mal_id"`
	URL            string         `json:"url"`
	Images         Images         `json:"images"`
	Trailer        Trailer        `json:"trailer"`
	Title          string         `json:"title"`
	TitleEnglish   string         `json:"title_english"`
	TitleJapanese  string         `json:"title_japanese"`
	TitleSynonyms  []string       `json:"title_synonyms"`
	Type           string         `json:"type"`
	Source         string         `json:"source"`
	Episodes       *int           `json:"episodes"`
	Status         string         `json:"status"`
	Airing         bool           `json:"airing"`
	Aired          Aired          `json:"aired"`
	Duration       string         `json:"duration"`
	Rating         string         `json:"rating"`
	Score          *float64       `json:"score"`
	ScoredBy       *int           `json:"scored_by"`
	Rank           *int           `json:"rank"`
	Popularity     int            `json:"popularity"`
	Members        int            `json:"members"`
	Favorites      int            `json:"favorites"`
	Synopsis       string         `json:"synopsis"`
	Background     string         `json:"background"`
	Season         string         `json:"season"`
	Year           *int           `json:"year"`
	Studios        []Entity       `json:"studios"`
	Genres         []Entity       `json:"genres"`
	Themes         []Entity       `json:"themes"`
	Demographics   []Entity       `json:"demographics"`
	Streaming      []ExternalLink `json:"streaming,omitempty"`
	External       []ExternalLink `json:"external,omitempty"`
	StreamingLinks []ExternalLink `json:"streaming_links,omitempty"`
}

// StreamingSources returns the streaming links of a full record,
// accepting both field names the API has used.
func (a *Anime) StreamingSources() []ExternalLink {
	if len(a.Streaming) > 0 {
		return a.Streaming
	}
	return a.StreamingLinks
}

type PaginationItems struct {
	Count   int `json:"count"`
	Total   int `json:"total"`
	PerPage int `json:"per_page"`
}

type Pagination struct {
	LastVisiblePage int             `json:"last_visible_page"`
	HasNextPage     bool            `json:"has_next_page"`
	CurrentPage     int             `json:"current_page"`
	Items           PaginationItems `json:"items"`
}

// SearchResponse is the paginated list envelope shared by /anime and /seasons/now
type SearchResponse struct {
	Data       []Anime     `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Episode struct {
	MalID         int      `json:"mal_id"`
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	TitleJapanese string   `json:"title_japanese"`
	TitleRomanji  string   `json:"title_romanji"`
	Aired         *string  `json:"aired"`
	Score         *float64 `json:"score"`
	Filler        bool     `json:"filler"`
	Recap         bool     `json:"recap"`
	ForumURL      string   `json:"forum_url"`
}

type EpisodesResponse struct {
	Data       []Episode   `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type PromoVideo struct {
	Title   string  `json:"title"`
	Trailer Trailer `json:"trailer"`
}

type EpisodeVideo struct {
	MalID   int    `json:"mal_id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Episode string `json:"episode"`
	Images  Images `json:"images"`
}

type MusicVideo struct {
	Title string  `json:"title"`
	Video Trailer `json:"video"`
	Meta  struct {
		Title  string `json:"title"`
		Author string `json:"author"`
	} `json:"meta"`
}

type Videos struct {
	Promo       []PromoVideo   `json:"promo"`
	Episodes    []EpisodeVideo `json:"episodes"`
	MusicVideos []MusicVideo   `json:"music_videos"`
}

type animeEnvelope struct {
	Data Anime `json:"data"`
}

type linksEnvelope struct {
	Data []ExternalLink `json:"data"`
}

type videosEnvelope struct {
	Data Videos `json:"data"`
}

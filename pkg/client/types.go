package client

import "encoding/json"

// Media is one entry of a listing or search result.
type Media struct {
	ID           int64   `json:"id"`
	MediaType    string  `json:"media_type,omitempty"` // "movie", "tv" or "person" on mixed listings
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	Overview     string  `json:"overview,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	BackdropPath string  `json:"backdrop_path,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	GenreIDs     []int   `json:"genre_ids,omitempty"`
	VoteAverage  float64 `json:"vote_average,omitempty"`
	Popularity   float64 `json:"popularity,omitempty"`
}

// DisplayTitle returns Title for movies and Name for TV and people.
func (m Media) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

// Page is one page of a paginated listing.
type Page struct {
	Page         int     `json:"page"`
	Results      []Media `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// Genre is a named genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenreList is the genre reference list.
type GenreList struct {
	Genres []Genre `json:"genres"`
}

// MovieDetails is the detail record of a movie.
type MovieDetails struct {
	Media
	Runtime  int     `json:"runtime"`
	Tagline  string  `json:"tagline"`
	Status   string  `json:"status"`
	Genres   []Genre `json:"genres"`
	Homepage string  `json:"homepage"`
	IMDbID   string  `json:"imdb_id"`
}

// TVDetails is the detail record of a TV series.
type TVDetails struct {
	Media
	NumberOfSeasons  int     `json:"number_of_seasons"`
	NumberOfEpisodes int     `json:"number_of_episodes"`
	Status           string  `json:"status"`
	Genres           []Genre `json:"genres"`
}

// Video is a trailer, teaser or clip.
type Video struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

// VideoList lists the videos of a title.
type VideoList struct {
	ID      int64   `json:"id"`
	Results []Video `json:"results"`
}

// Person is the detail record of a cast or crew member.
type Person struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Biography          string `json:"biography"`
	Birthday           string `json:"birthday"`
	KnownForDepartment string `json:"known_for_department"`
	ProfilePath        string `json:"profile_path"`
}

// WatchProviders maps region codes to availability. Region entries are
// kept raw; their shape varies per offer type.
type WatchProviders struct {
	ID      int64                      `json:"id"`
	Results map[string]json.RawMessage `json:"results"`
}

// Region is a watch-provider region.
type Region struct {
	Code        string `json:"iso_3166_1"`
	EnglishName string `json:"english_name"`
}

// RegionList lists the watch-provider regions.
type RegionList struct {
	Results []Region `json:"results"`
}

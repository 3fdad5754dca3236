package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./animedex.db"

	// DefaultJikanBaseURL is the public Jikan v4 endpoint (unofficial MyAnimeList API)
	DefaultJikanBaseURL = "https://api.jikan.moe/v4"

	// DefaultPageSize is the number of catalog items shown per results page
	DefaultPageSize = 12

	// DefaultProfileImage is used when a user registers without a picture
	DefaultProfileImage = "/static/img/default-avatar.svg"

	// DefaultPosterHosts lists the image CDNs of Jikan records, comma-separated
	DefaultPosterHosts = "cdn.myanimelist.net"

	// DefaultAvatarMaxBytes bounds an uploaded profile image (2 MiB)
	DefaultAvatarMaxBytes = 2 << 20
)

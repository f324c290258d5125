package main

import (
	"context"
	"net/http"

	"albumserver/internal/app/albums"
	"albumserver/internal/cache"
	"albumserver/internal/config"
	"albumserver/internal/http/middleware"
	"albumserver/internal/httpapi"
	"albumserver/internal/logging"
	"albumserver/internal/store"
)

func newHTTPHandler(cfg *config.Config, albumSvc albums.Service) http.Handler {
	routes := httpapi.New(albumSvc).Routes()

	handler := middleware.CORS(cfg.CORS.AllowedOrigins)(routes)
	handler = middleware.RequestLogging()(handler)
	return middleware.Recovery()(handler)
}

// newAlbumService builds the album service, fronted by Redis when configured.
// The returned cleanup closes the cache client.
func newAlbumService(ctx context.Context, cfg *config.Config, dataStore *store.Store) (albums.Service, func()) {
	if !cfg.Cache.Enabled() {
		logging.WithContext(ctx).Info().Msg("Redis address not provided, artist cache disabled")
		return albums.New(dataStore), func() {}
	}

	artistCache := cache.NewArtistCache(
		cache.NewRedisClient(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB),
		cfg.Cache.TTL,
	)
	if err := artistCache.Ping(ctx); err != nil {
		logging.WithContext(ctx).Warn().Err(err).Msg("artist cache unavailable, continuing without it")
		_ = artistCache.Close()
		return albums.New(dataStore), func() {}
	}

	logging.WithContext(ctx).Info().Str("addr", cfg.Cache.Addr).Msg("artist cache enabled")
	return albums.New(dataStore, albums.WithCache(artistCache)), func() { _ = artistCache.Close() }
}

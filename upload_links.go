package main

import (
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	uuid "github.com/satori/go.uuid"
)

// UploadLinks hands out one-time web upload links bound to a chat. Links
// expire after the configured TTL.
type UploadLinks struct {
	chats     *gocache.Cache
	publicURL string
}

func NewUploadLinks(publicURL string, ttl time.Duration) *UploadLinks {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &UploadLinks{
		chats:     gocache.New(ttl, time.Minute),
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Issue returns a new token for chatID and the upload page URL carrying it.
func (l *UploadLinks) Issue(chatID int64) (string, string) {
	token := uuid.NewV4().String()
	l.chats.SetDefault(token, chatID)
	return token, l.publicURL + "/?token=" + url.QueryEscape(token)
}

// Claim resolves a token to its chat and invalidates it.
func (l *UploadLinks) Claim(token string) (int64, bool) {
	if token == "" {
		return 0, false
	}
	v, ok := l.chats.Get(token)
	if !ok {
		return 0, false
	}
	l.chats.Delete(token)
	return v.(int64), true
}

// Valid reports whether token can still be claimed.
func (l *UploadLinks) Valid(token string) bool {
	_, ok := l.chats.Get(token)
	return ok
}

func (l *UploadLinks) DatasetURL(slug string) string {
	return l.publicURL + "/datasets/" + url.PathEscape(slug)
}

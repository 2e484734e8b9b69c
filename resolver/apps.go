package resolver

import (
	"fmt"
	"time"
)

// appRegistration maps a deployed app id to the blob hash of its bundle
// plus optional serving hints.
type appRegistration struct {
	blobHash     string
	entryPoint   string
	fallbackURL  string
	registeredAt time.Time
}

// AppResolution is the full result of resolving an app URL.
type AppResolution struct {
	URL         string `json:"url,omitempty"`
	SourceID    string `json:"sourceId,omitempty"`
	BlobHash    string `json:"blobHash,omitempty"`
	FallbackURL string `json:"fallbackUrl,omitempty"`
}

// RegisterApp maps an app id to its bundle blob hash. EntryPoint is the
// file served when no path is requested; fallbackURL is used when no
// app-capable source is available. Re-registering replaces the mapping.
func (r *Resolver) RegisterApp(appID, blobHash, entryPoint, fallbackURL string) {
	now := r.now()

	r.mu.Lock()
	r.apps[appID] = appRegistration{
		blobHash:     blobHash,
		entryPoint:   entryPoint,
		fallbackURL:  fallbackURL,
		registeredAt: now,
	}
	r.mu.Unlock()

	r.logger.Debug("app registered", "app_id", appID, "blob_hash", blobHash)
}

// UnregisterApp removes an app registration. No-op if unknown.
func (r *Resolver) UnregisterApp(appID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.apps, appID)
}

// HasApp reports whether an app id is registered.
func (r *Resolver) HasApp(appID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.apps[appID]
	return ok
}

// AppBlobHash returns the bundle blob hash registered for an app id.
func (r *Resolver) AppBlobHash(appID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.apps[appID]
	if !ok {
		return "", false
	}
	return reg.blobHash, true
}

// RegisteredAppCount returns the number of registered apps.
func (r *Resolver) RegisteredAppCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.apps)
}

// ResolveAppURL returns the URL an app should be loaded from, or an empty
// string when nothing can serve it. The served file is the explicit path
// if given, else the app's registered entry point, else "index.html".
func (r *Resolver) ResolveAppURL(appID, path string) string {
	return r.ResolveAppURLFull(appID, path).URL
}

// ResolveAppURLFull resolves an app URL and reports which source serves
// it, the registered bundle hash, and any fallback considered. Unavailable
// or URL-less sources are skipped; when no app-capable source qualifies
// the per-app fallback wins over the resolver-wide one.
func (r *Resolver) ResolveAppURLFull(appID, path string) AppResolution {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, registered := r.apps[appID]

	filePath := path
	if filePath == "" && registered {
		filePath = reg.entryPoint
	}
	if filePath == "" {
		filePath = "index.html"
	}

	result := AppResolution{}
	if registered {
		result.BlobHash = reg.blobHash
		result.FallbackURL = reg.fallbackURL
	}

	for _, s := range r.sources {
		if s.available && s.supports("app") && s.baseURL != "" {
			result.URL = fmt.Sprintf("%s/apps/%s/%s", s.baseURL, appID, filePath)
			result.SourceID = s.id
			return result
		}
	}

	if registered && reg.fallbackURL != "" {
		result.URL = reg.fallbackURL
		return result
	}
	if r.fallbackURL != "" {
		result.URL = fmt.Sprintf("%s/apps/%s/%s", r.fallbackURL, appID, filePath)
		result.FallbackURL = r.fallbackURL
		return result
	}
	return result
}

package domain

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Provider identifies the hosting service behind an Endpoint.
type Provider string

// Supported providers.
const (
	ProviderNone   Provider = ""
	ProviderGitHub Provider = "github"
	ProviderAzure  Provider = "azure"
	ProviderLocal  Provider = "local"
)

// Regular expressions for recognizing repository URLs.
var (
	// githubURLPattern matches https://github.com/owner/repo with an optional
	// .git suffix or trailing slash.
	githubURLPattern = regexp.MustCompile(`^https://github\.com/([^/\s]+)/([^/\s]+?)(?:\.git)?/?$`)

	// azureURLPattern matches https://[user@]dev.azure.com/org/project/_git/repo.
	azureURLPattern = regexp.MustCompile(`^https://(?:[^@/\s]+@)?dev\.azure\.com/([^/\s]+)/([^/\s]+)/_git/([^/\s]+?)/?$`)

	// localURLPattern matches file:///absolute/path/repo[.git].
	localURLPattern = regexp.MustCompile(`^file://(/\S*[^/\s])/?$`)
)

// Endpoint is a source or destination repository. The zero value and any
// Endpoint produced from an unrecognized URL are unavailable: every derived
// URL is empty.
type Endpoint struct {
	provider Provider

	// owner is the GitHub owner or the Azure DevOps organization.
	owner string

	// project is the Azure DevOps project.
	project string

	// repository is the short repository name.
	repository string

	// localPath is the filesystem path of a local repository.
	localPath string
}

// ParseEndpoint recognizes rawURL against the known provider patterns.
func ParseEndpoint(rawURL string) Endpoint {
	rawURL = strings.TrimSpace(rawURL)

	if m := githubURLPattern.FindStringSubmatch(rawURL); m != nil {
		if !validSegment(m[1]) || !validSegment(m[2]) {
			return Endpoint{}
		}
		return Endpoint{provider: ProviderGitHub, owner: m[1], repository: m[2]}
	}

	if m := azureURLPattern.FindStringSubmatch(rawURL); m != nil {
		if !validSegment(m[1]) || !validSegment(m[2]) || !validSegment(m[3]) {
			return Endpoint{}
		}
		return Endpoint{provider: ProviderAzure, owner: m[1], project: m[2], repository: m[3]}
	}

	if m := localURLPattern.FindStringSubmatch(rawURL); m != nil {
		name := strings.TrimSuffix(path.Base(m[1]), ".git")
		if !validSegment(name) {
			return Endpoint{}
		}
		return Endpoint{provider: ProviderLocal, repository: name, localPath: m[1]}
	}

	return Endpoint{}
}

// validSegment reports whether name can stand alone as a single directory
// entry. The repository segment becomes the scratch directory name, so dot
// names and anything filepath would split are rejected.
func validSegment(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return filepath.Base(name) == name && !strings.ContainsRune(name, '\\')
}

// Available reports whether every structural field required by the
// provider was parsed.
func (e Endpoint) Available() bool {
	switch e.provider {
	case ProviderGitHub:
		return e.owner != "" && e.repository != ""
	case ProviderAzure:
		return e.owner != "" && e.project != "" && e.repository != ""
	case ProviderLocal:
		return e.localPath != "" && e.repository != ""
	default:
		return false
	}
}

// Provider returns the hosting service of the endpoint.
func (e Endpoint) Provider() Provider {
	return e.provider
}

// Owner returns the GitHub owner or Azure DevOps organization.
func (e Endpoint) Owner() string {
	return e.owner
}

// Repository returns the short repository identifier. It is used as the
// scratch directory name.
func (e Endpoint) Repository() string {
	if !e.Available() {
		return ""
	}
	return e.repository
}

// URL returns the canonical repository URL.
func (e Endpoint) URL() string {
	if !e.Available() {
		return ""
	}
	return e.build(nil).String()
}

// AuthenticatedURL returns the clone/push URL carrying secret. The result
// must never be logged. An empty secret yields a URL without userinfo so git
// falls back to its own credential helpers.
func (e Endpoint) AuthenticatedURL(secret string) string {
	if !e.Available() {
		return ""
	}

	switch e.provider {
	case ProviderGitHub:
		var user *url.Userinfo
		if secret != "" {
			user = url.UserPassword(e.owner, secret)
		}
		u := e.build(user)
		u.Path += ".git"
		return u.String()
	case ProviderAzure:
		var user *url.Userinfo
		if secret != "" {
			user = url.User(secret)
		}
		return e.build(user).String()
	default:
		return e.build(nil).String()
	}
}

// String returns the canonical URL so an Endpoint can be logged safely.
func (e Endpoint) String() string {
	return e.URL()
}

func (e Endpoint) build(user *url.Userinfo) *url.URL {
	switch e.provider {
	case ProviderGitHub:
		return &url.URL{Scheme: "https", User: user, Host: "github.com", Path: "/" + e.owner + "/" + e.repository}
	case ProviderAzure:
		return &url.URL{
			Scheme: "https",
			User:   user,
			Host:   "dev.azure.com",
			Path:   "/" + e.owner + "/" + e.project + "/_git/" + e.repository,
		}
	default:
		return &url.URL{Scheme: "file", Path: e.localPath}
	}
}

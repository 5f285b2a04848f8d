package host

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type ProfileCache struct {
	hostsDir string
	cache    map[string]*Profile
	mu       sync.RWMutex
}

func NewProfileCache(hostsDir string) *ProfileCache {
	return &ProfileCache{
		hostsDir: hostsDir,
		cache:    make(map[string]*Profile),
	}
}

func (pc *ProfileCache) Run() error {
	if _, err := os.Stat(pc.hostsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(pc.hostsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		hostName := strings.TrimSuffix(filepath.Base(file), ".yml")

		profile, err := pc.LoadProfile(hostName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Host profile loaded", "host", hostName, "disabled", profile.Settings.Disabled, "timeout", profile.Settings.Timeout)
	}

	return nil
}

func (pc *ProfileCache) LoadProfile(hostName string) (*Profile, error) {
	profileFile := pc.getProfileFilePath(hostName)
	profile, err := pc.parseProfile(profileFile)
	if err != nil {
		return nil, err
	}

	profile.Name = hostName

	if err := pc.validateProfile(profile); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", profileFile, err)
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.cache[profile.Name] = profile

	return profile, nil
}

func (pc *ProfileCache) GetProfile(hostName string) (*Profile, error) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	profile, ok := pc.cache[hostName]
	if !ok {
		return nil, fmt.Errorf("host profile with name '%s' not found", hostName)
	}
	return profile, nil
}

func (pc *ProfileCache) GetProfiles() map[string]*Profile {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	profilesCopy := make(map[string]*Profile, len(pc.cache))
	for k, v := range pc.cache {
		profilesCopy[k] = v
	}
	return profilesCopy
}

func (pc *ProfileCache) GetProfileCount() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return len(pc.cache)
}

func (pc *ProfileCache) parseProfile(profileFile string) (*Profile, error) {
	data, err := os.ReadFile(profileFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if profile.Settings.Timeout == 0 {
		profile.Settings.Timeout = 10
	}

	return &profile, nil
}

func (pc *ProfileCache) validateProfile(profile *Profile) error {
	if profile == nil {
		return fmt.Errorf("profile is nil")
	}
	if profile.Name == "" {
		return fmt.Errorf("host name is required")
	}

	if profile.Settings.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	for fieldName, fieldValue := range profile.urls() {
		if fieldValue == "" {
			continue
		}
		u, err := url.Parse(fieldValue)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL", fieldName)
		}
	}

	return nil
}

func (pc *ProfileCache) getProfileFilePath(hostName string) string {
	return filepath.Join(pc.hostsDir, hostName+".yml")
}

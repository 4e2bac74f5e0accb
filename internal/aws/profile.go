package aws

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/vietdv277/nimbus/pkg/types"
)

var (
	sectionRe = regexp.MustCompile(`^\[\s*(profile\s+)?([^\]]+?)\s*\]$`)
	regionRe  = regexp.MustCompile(`^\s*region\s*=\s*(.+)$`)
)

// ListProfiles reads AWS profiles from ~/.aws/credentials and ~/.aws/config.
// "default" sorts first.
func ListProfiles() ([]types.AWSProfile, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*types.AWSProfile)
	for _, source := range []string{"credentials", "config"} {
		f, err := os.Open(filepath.Join(home, ".aws", source))
		if err != nil {
			continue
		}
		profiles, err := parseProfiles(f, source)
		f.Close()
		if err != nil {
			return nil, err
		}
		for _, p := range profiles {
			if existing, ok := byName[p.Name]; ok {
				if existing.Region == "" {
					existing.Region = p.Region
				}
				continue
			}
			byName[p.Name] = &p
		}
	}

	profiles := make([]types.AWSProfile, 0, len(byName))
	for _, p := range byName {
		profiles = append(profiles, *p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].Name == "default" || profiles[j].Name == "default" {
			return profiles[i].Name == "default"
		}
		return profiles[i].Name < profiles[j].Name
	})

	return profiles, nil
}

// ValidateProfile checks if a profile exists
func ValidateProfile(name string) bool {
	profiles, err := ListProfiles()
	if err != nil {
		return false
	}
	for _, p := range profiles {
		if p.Name == name {
			return true
		}
	}
	return false
}

// parseProfiles reads an AWS INI file. In the config file named profiles
// are written [profile name]; in the credentials file they are [name].
func parseProfiles(r io.Reader, source string) ([]types.AWSProfile, error) {
	var profiles []types.AWSProfile
	var current *types.AWSProfile

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if m := sectionRe.FindStringSubmatch(line); m != nil {
			name := m[2]
			prefixed := m[1] != ""
			if source == "config" && !prefixed && name != "default" {
				// sso-session and services sections
				current = nil
				continue
			}
			profiles = append(profiles, types.AWSProfile{Name: name, Source: source})
			current = &profiles[len(profiles)-1]
			continue
		}

		if current != nil {
			if m := regionRe.FindStringSubmatch(line); m != nil {
				current.Region = strings.TrimSpace(m[1])
			}
		}
	}

	return profiles, scanner.Err()
}

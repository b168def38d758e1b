// Copyright (c) 2025, DICE Research Group.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package registry

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/dice-group/recipectl/pkg/header"
	"github.com/dice-group/recipectl/pkg/recipe"
)

// InfoFileName is the file holding a committed package's metadata.
const InfoFileName = "package.yaml"

var refComponent = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+-]*$`)

// Ref addresses one binary package.
type Ref struct {
	Name      string `json:"name" yaml:"name"`
	Version   string `json:"version" yaml:"version"`
	PackageID string `json:"packageId" yaml:"packageId"`
}

// RefOf returns the Ref of a resolved recipe.
func RefOf(r *recipe.Recipe) Ref {
	return Ref{Name: r.Identity.Name, Version: r.Identity.Version.String(), PackageID: r.PackageID}
}

// String returns "name/version:packageId".
func (r Ref) String() string {
	return fmt.Sprintf("%s/%s:%s", r.Name, r.Version, r.PackageID)
}

// Validate checks that every component is a safe single path element.
func (r Ref) Validate() error {
	for key, v := range map[string]string{"name": r.Name, "version": r.Version, "packageId": r.PackageID} {
		if !refComponent.MatchString(v) || v == "." || v == ".." {
			return fmt.Errorf("invalid package reference %s %q", key, v)
		}
	}
	return nil
}

func (r Ref) dir(root string) string {
	return filepath.Join(root, r.Name, r.Version, r.PackageID)
}

// PackageInfo is the committed record of a package.
type PackageInfo struct {
	header.Header `json:",inline" yaml:",inline"`

	Ref          `json:",inline" yaml:",inline"`
	Description  string               `json:"description,omitempty" yaml:"description,omitempty"`
	Revision     int                  `json:"revision" yaml:"revision"`
	Mode         string               `json:"mode" yaml:"mode"`
	Options      map[string]string    `json:"options,omitempty" yaml:"options,omitempty"`
	Settings     map[string]string    `json:"settings,omitempty" yaml:"settings,omitempty"`
	Requirements []recipe.Requirement `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	Properties   []recipe.Property    `json:"properties,omitempty" yaml:"properties,omitempty"`
	CommittedAt  time.Time            `json:"committedAt" yaml:"committedAt"`
}

// Property returns the value of an exported property.
func (p *PackageInfo) Property(key string) (string, bool) {
	for _, prop := range p.Properties {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return "", false
}

// InfoFromRecipe fills the descriptive fields of a PackageInfo from r.
// Requirements and properties are added by the export session.
func InfoFromRecipe(r *recipe.Recipe) PackageInfo {
	settings := make(map[string]string, len(r.Settings))
	for k, v := range r.Settings {
		settings[k] = v
	}
	return PackageInfo{
		Ref:         RefOf(r),
		Description: r.Identity.Description,
		Revision:    r.Revision,
		Mode:        string(r.Mode),
		Options:     r.Options.Map(),
		Settings:    settings,
	}
}

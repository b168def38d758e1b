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

package recipe

import (
	"github.com/dice-group/recipectl/pkg/header"
	"github.com/dice-group/recipectl/pkg/packageid"
)

// Recipe is the fully resolved configuration of one invocation. It is built
// once by a Resolver and must not be modified afterwards.
type Recipe struct {
	header.Header `json:",inline" yaml:",inline"`

	InvocationID string          `json:"invocationId" yaml:"invocationId"`
	Revision     int             `json:"revision" yaml:"revision"`
	Identity     Identity        `json:"identity" yaml:"identity"`
	Options      ResolvedOptions `json:"options" yaml:"options"`
	Settings     Settings        `json:"settings,omitempty" yaml:"settings,omitempty"`
	Requirements []Requirement   `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	Mode         packageid.Mode  `json:"mode" yaml:"mode"`
	PackageID    string          `json:"packageId" yaml:"packageId"`
	Metadata     Metadata        `json:"metadata" yaml:"metadata"`
	Packaging    Packaging       `json:"packaging" yaml:"packaging"`
}

// Metadata is descriptive package information carried through from the
// definition.
type Metadata struct {
	Author      string      `json:"author,omitempty" yaml:"author,omitempty"`
	Homepage    string      `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	URL         string      `json:"url,omitempty" yaml:"url,omitempty"`
	License     string      `json:"license,omitempty" yaml:"license,omitempty"`
	Topics      []string    `json:"topics,omitempty" yaml:"topics,omitempty"`
	PackageType PackageType `json:"packageType,omitempty" yaml:"packageType,omitempty"`
}

// Packaging holds what the packager needs from the definition.
type Packaging struct {
	SourceDir        string          `json:"sourceDir" yaml:"sourceDir"`
	Namespace        string          `json:"namespace" yaml:"namespace"`
	FindMode         string          `json:"findMode" yaml:"findMode"`
	BuilderVariables map[string]bool `json:"builderVariables,omitempty" yaml:"builderVariables,omitempty"`
	PruneDirs        []string        `json:"pruneDirs" yaml:"pruneDirs"`
	LicensePath      string          `json:"licensePath" yaml:"licensePath"`
}

// Property is one exported consumer-facing key/value pair.
type Property struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Exported property keys.
const (
	PropertyTargetName = "cmake_target_name"
	PropertyFileName   = "cmake_file_name"
	PropertyFindMode   = "cmake_find_mode"
)

// Reference returns "name/version".
func (r *Recipe) Reference() string {
	return r.Identity.Reference()
}

// TargetName returns the consumer target, "<namespace>::<name>".
func (r *Recipe) TargetName() string {
	ns := r.Packaging.Namespace
	if ns == "" {
		ns = r.Identity.Name
	}
	return ns + "::" + r.Identity.Name
}

// ExportedProperties derives the published properties from the identity
// alone, so they are the same for every configuration of a package.
func (r *Recipe) ExportedProperties() []Property {
	findMode := r.Packaging.FindMode
	if findMode == "" {
		findMode = DefaultFindMode
	}
	return []Property{
		{Key: PropertyTargetName, Value: r.TargetName()},
		{Key: PropertyFileName, Value: r.Identity.Name},
		{Key: PropertyFindMode, Value: findMode},
	}
}

// IdentityRequirements returns the requirements that affect a full package id.
func (r *Recipe) IdentityRequirements() []Requirement {
	return IdentityRequirements(r.Requirements)
}

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

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"github.com/urfave/cli/v3"

	apperrors "github.com/dice-group/recipectl/pkg/errors"
)

const configName = ".recipectl"

type configKey struct{}

// loadConfig reads the optional config file and binds RECIPECTL_* env
// vars. An explicit path must exist; the implicit .recipectl.yaml may not.
func loadConfig(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
				"failed to read config file", err, map[string]any{"path": path})
		}
		return v, nil
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "failed to read config file", err)
		}
	}
	return v, nil
}

func withConfig(ctx context.Context, v *viper.Viper) context.Context {
	return context.WithValue(ctx, configKey{}, v)
}

func configFrom(ctx context.Context) *viper.Viper {
	if v, ok := ctx.Value(configKey{}).(*viper.Viper); ok {
		return v
	}
	return viper.New()
}

// Flags set on the command line win over the config file and env vars,
// which win over flag defaults.

func stringSetting(cmd *cli.Command, v *viper.Viper, key string) string {
	if cmd.IsSet(key) || !v.IsSet(key) {
		return cmd.String(key)
	}
	return v.GetString(key)
}

func boolSetting(cmd *cli.Command, v *viper.Viper, key string) bool {
	if cmd.IsSet(key) || !v.IsSet(key) {
		return cmd.Bool(key)
	}
	return v.GetBool(key)
}

func intSetting(cmd *cli.Command, v *viper.Viper, key string) int {
	if cmd.IsSet(key) || !v.IsSet(key) {
		return int(cmd.Int(key))
	}
	return v.GetInt(key)
}

func isSet(cmd *cli.Command, v *viper.Viper, key string) bool {
	return cmd.IsSet(key) || v.IsSet(key)
}

// mapSetting merges the config map under key with name=value flag pairs.
// Nested config maps flatten to dotted keys, so both
//
//	settings: {compiler.cppstd: "20"}
//	settings: {compiler: {cppstd: "20"}}
//
// yield compiler.cppstd=20.
func mapSetting(cmd *cli.Command, v *viper.Viper, key, flag string) (map[string]string, error) {
	out := make(map[string]string)
	flatten(out, "", v.GetStringMap(key))

	pairs, err := parseKeyValues(flag, cmd.StringSlice(flag))
	if err != nil {
		return nil, err
	}
	for k, val := range pairs {
		out[k] = val
	}
	return out, nil
}

func flatten(out map[string]string, prefix string, in map[string]any) {
	for k, val := range in {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			flatten(out, full, nested)
			continue
		}
		out[full] = fmt.Sprint(val)
	}
}

// parseKeyValues parses name=value pairs. Later pairs override earlier ones.
func parseKeyValues(flag string, items []string) (map[string]string, error) {
	out := make(map[string]string, len(items))
	for _, item := range items {
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid --%s value %q, expected name=value", flag, item),
				map[string]any{"flag": flag})
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recipectl_recipe_resolve_duration_seconds",
			Help:    "Duration of recipe resolution in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
	)

	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipectl_recipe_resolutions_total",
			Help: "Total number of recipe resolutions by result code",
		},
		[]string{"result"},
	)

	modeFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recipectl_recipe_mode_fallbacks_total",
			Help: "Canonical package id requests downgraded to full ids",
		},
	)
)

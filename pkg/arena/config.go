/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package arena

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Generated region names are "<prefix>-<pid>-<8 hex chars>" and must fit a
// 32-byte registry name slot; pids reach seven digits on default kernels.
const maxNamePrefixLen = 14

// Config carries per-allocator options. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// NamePrefix prefixes every generated region name of this allocator,
	// the registry block included.
	NamePrefix string

	// Meter, when set, publishes allocation and segment counters through
	// OpenTelemetry in addition to the package's Prometheus collectors.
	Meter metric.Meter

	// Tracer, when set, wraps arena bootstrap in a span.
	Tracer trace.Tracer

	// Events, when set, receives segment creation and attach events.
	Events *EventDispatcher
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() *Config {
	return &Config{
		NamePrefix: "shmarena",
	}
}

// VerifyConfig checks a configuration before an allocator is built from it.
func VerifyConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("arena: config is nil")
	}
	if cfg.NamePrefix == "" {
		return fmt.Errorf("arena: NamePrefix must not be empty")
	}
	if len(cfg.NamePrefix) > maxNamePrefixLen {
		return fmt.Errorf("arena: NamePrefix %q longer than %d bytes", cfg.NamePrefix, maxNamePrefixLen)
	}
	if strings.ContainsAny(cfg.NamePrefix, "/\x00") {
		return fmt.Errorf("arena: NamePrefix %q contains invalid characters", cfg.NamePrefix)
	}
	return nil
}

// verified fills in the default configuration and validates the result.
func verified(cfg *Config) (*Config, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := VerifyConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exposes every registered Val as a Prometheus gauge.
// It is entirely opt-in: nothing in the core registers it, and its metric
// names are derived mechanically from Val.Name, not a schema the core
// promises to keep stable (spec.md §1 lists telemetry format as a
// non-goal of the core itself).
type PrometheusCollector struct {
	namespace string
}

// NewPrometheusCollector returns a collector that prefixes every metric
// with namespace + "_".
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{namespace: namespace}
}

func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	// Dynamic set of metrics: described lazily in Collect, as
	// prometheus.Collector permits for unchecked collectors.
}

func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	for _, v := range All() {
		desc := prometheus.NewDesc(
			c.namespace+"_"+sanitizeName(v.Name),
			v.Desc,
			nil, nil,
		)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(v.Val()))
	}
}

func sanitizeName(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out[i] = c
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// transitionsTotal counts committed status transitions by kind
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpsctl_transitions_total",
		Help: "Committed container status transitions by transition",
	}, []string{"transition"})

	// operationErrors counts failed operations by error kind
	operationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpsctl_operation_errors_total",
		Help: "Failed operations by operation and error kind",
	}, []string{"operation", "kind"})

	// authorizationDenials counts denied actions
	authorizationDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpsctl_authorization_denials_total",
		Help: "Denied authorization checks by action",
	}, []string{"action"})

	// hostCpuPercent is the last host CPU sample
	hostCpuPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vpsctl_host_cpu_percent",
		Help: "Last sampled host CPU usage",
	})

	// fleetStopsTotal counts emergency fleet stops issued by the host monitor
	fleetStopsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vpsctl_fleet_stops_total",
		Help: "Fleet-wide stops issued by the host monitor",
	})

	// autoSuspensionsTotal counts containers suspended by the workload monitor
	autoSuspensionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vpsctl_auto_suspensions_total",
		Help: "Containers suspended by the workload monitor",
	})

	// sweepDuration tracks workload sweep latency
	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vpsctl_workload_sweep_duration_seconds",
		Help:    "Workload monitor sweep duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	// monitorErrors counts recovered monitor failures
	monitorErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpsctl_monitor_errors_total",
		Help: "Recovered monitor failures by monitor",
	}, []string{"monitor"})

	// containersGauge is the number of records by status
	containersGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vpsctl_containers",
		Help: "Registered containers by status",
	}, []string{"status"})
)

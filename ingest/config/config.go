/*
NAME
  config.go

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for acoustic packet
// ingest.
package config

import (
	"time"

	"github.com/ausocean/utils/logging"
)

// Enums to define inputs.
const (
	// Indicates no option has been set.
	NothingDefined = iota

	InputFile
	InputTCP
	InputUDP
	InputSHM
)

// Config provides parameters for an ingest session. Default values for
// unset fields are applied by Validate.
type Config struct {
	// Address is the host:port of a TCP server for InputTCP, or the local
	// address to listen on for InputUDP.
	Address string

	// ClipDuration is the nominal duration of each WAV clip. Clips are rounded
	// to a whole number of packets.
	ClipDuration time.Duration

	// Input defines the input data source.
	//
	// Valid values are defined by enums:
	// InputFile:
	//		Read a log stream from the file at InputPath, or stdin if InputPath
	//		is "-".
	// InputTCP:
	//		Read a log stream from the TCP server at Address.
	// InputUDP:
	//		Receive one packet per datagram at Address.
	// InputSHM:
	//		Read log-stream frames from the shared-memory ring called SHMName.
	Input uint8

	// InputPath defines the input file location for File input.
	InputPath string

	// Logger holds an implementation of the Logger interface. This must be set
	// before Update or Validate are called.
	Logger logging.Logger

	// LogLevel is the logging verbosity level.
	// Valid values are defined by enums from the logger package: logging.Debug,
	// logging.Info, logging.Warning logging.Error, logging.Fatal.
	LogLevel int8

	Loop bool // If true will restart reading of an input file after io.EOF.

	// MetricsAddress is the address to serve Prometheus metrics on. Metrics are
	// not served if empty.
	MetricsAddress string

	// OutputPath is the directory WAV clips are written to.
	OutputPath string

	// PhoneMask selects channels by index, in order. An empty mask keeps all
	// channels.
	PhoneMask []int

	PollInitial   time.Duration // Initial shared-memory poll delay.
	PollMin       time.Duration // Lower bound of the adaptive poll delay.
	PollMax       time.Duration // Upper bound of the adaptive poll delay.
	ProducerRetry time.Duration // Interval between attempts to open the ring.

	ReadTimeout time.Duration // UDP read deadline, after which cancellation is checked.
	RecvBuffer  uint          // UDP socket receive buffer in bytes.

	SHMDir  string // Directory holding shared-memory regions.
	SHMName string // Shared-memory region name.

	Suppress bool // Holds logger suppression state.
}

// Validate checks for any errors in the config fields and defaults settings
// if particular parameters have not been defined.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their corresponding
// values, parses the string values and converting into correct type, and then
// sets the config struct fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}

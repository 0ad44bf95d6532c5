/*
DESCRIPTION
  input.go provides parsing of the input argument accepted by the acoustic
  commands.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"strconv"
	"strings"
)

// InputVars returns the variables selecting the input described by arg:
//
//	shm:name    shared memory region name
//	host:port   TCP log stream
//	port        UDP datagrams received on port
//	path        log-stream file, or standard input for "-" or ""
func InputVars(arg string) map[string]string {
	switch {
	case arg == "":
		return map[string]string{KeyInput: "file", KeyInputPath: "-"}
	case strings.HasPrefix(arg, "shm:"):
		name := strings.TrimPrefix(arg, "shm:")
		if !strings.HasPrefix(name, "/") {
			name = "/" + name
		}
		return map[string]string{KeyInput: "shm", KeySHMName: name}
	case strings.Contains(arg, ":"):
		return map[string]string{KeyInput: "tcp", KeyAddress: arg}
	}
	if _, err := strconv.ParseUint(arg, 10, 16); err == nil {
		return map[string]string{KeyInput: "udp", KeyAddress: ":" + arg}
	}
	return map[string]string{KeyInput: "file", KeyInputPath: arg}
}

//go:build !linux

package streamio

import "os"

func adviseSequential(*os.File) {}

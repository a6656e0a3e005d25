package fmp4

import "encoding/binary"

var be = binary.BigEndian

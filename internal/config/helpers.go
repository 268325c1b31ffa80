package config

import (
	oraclepkg "perpstate/pkg/oracle"
)

// MustLoadOracle loads etc/oracle.yaml from the project root and panics on
// error. Tools that only need the feed list use it instead of the full
// server config.
func MustLoadOracle() *oraclepkg.Config {
	return oraclepkg.MustLoad()
}

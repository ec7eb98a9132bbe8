package config

import (
	"github.com/spf13/viper"

	"github.com/sgeisler/testinator/internal/constants"
)

// setDefaults registers built-in defaults on v.
// `fuzzing` has no defaults on purpose: its absence disables the fuzz phase.
func setDefaults(v *viper.Viper) {
	v.SetDefault("par", constants.DefaultPar)
	v.SetDefault("job_timeout", constants.DefaultJobTimeout.String())
	v.SetDefault("work_dir", "")
}

package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers the default value for every setting so that a
// partial config file still unmarshals into a complete Settings struct.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "closet-go")

	viper.SetDefault("garmentnet.modelpath", "model/garmentnet_multihead.tflite")
	viper.SetDefault("garmentnet.labelpath", "")
	viper.SetDefault("garmentnet.threads", 0)
	viper.SetDefault("garmentnet.usexnnpack", true)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "closet.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "closet")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
	viper.SetDefault("output.mysql.database", "closet")

	viper.SetDefault("recommend.apikey", "")
	viper.SetDefault("recommend.baseurl", "https://api.openai.com/v1")
	viper.SetDefault("recommend.model", "gpt-4")
	viper.SetDefault("recommend.timeout", 30*time.Second)
	viper.SetDefault("recommend.cachettl", 5*time.Minute)
	viper.SetDefault("recommend.defaultcount", 5)
}

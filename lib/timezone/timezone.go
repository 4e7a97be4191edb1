package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		panic(err)
	}
}

// force the timezone to be Brasília time no matter where the process
// runs, otherwise day bucketing based on <time.Time>.Year()/Month()/Day()
// shifts depending on the host's locale
func Now() time.Time {
	return time.Now().In(Location)
}

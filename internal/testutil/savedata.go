package testutil

import "github.com/roach88/tcslink/internal/savedata"

// VanillaRecord is a never-played chapter record.
func VanillaRecord() savedata.Record {
	return savedata.Record{ChallengeTime: savedata.DefaultChallengeTime}
}

package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const initDataBotToken = "123456:TEST-TOKEN"

// initDataRaw and initDataTamperedRaw are the §8 scenario 8 worked example:
// BOT_TOKEN="123456:TEST-TOKEN" with a correctly computed hash, and the same
// payload with query_id flipped without recomputing the hash.
const initDataRaw = "auth_date=1700000000&query_id=AAAbbb&user=%7B%22id%22%3A424242%2C%22first_name%22%3A%22Ada%22%2C%22username%22%3A%22ada%22%7D&hash=24bff650104e2abbbc3e8af888af69af57dc198aca4c139fbce7112f0e74b052"
const initDataTamperedRaw = "auth_date=1700000000&query_id=ZZZccc&user=%7B%22id%22%3A424242%2C%22first_name%22%3A%22Ada%22%2C%22username%22%3A%22ada%22%7D&hash=24bff650104e2abbbc3e8af888af69af57dc198aca4c139fbce7112f0e74b052"

func TestVerifyInitData_AcceptsCorrectlyComputedHash(t *testing.T) {
	data, err := verifyInitData(initDataRaw, initDataBotToken)
	require.NoError(t, err)
	assert.Equal(t, "424242", data.UserID)
	assert.Equal(t, int64(1700000000), data.AuthDate)
}

func TestVerifyInitData_RejectsTamperedFieldWithStaleHash(t *testing.T) {
	_, err := verifyInitData(initDataTamperedRaw, initDataBotToken)
	assert.Error(t, err)
}

func TestVerifyInitData_RejectsMissingHash(t *testing.T) {
	_, err := verifyInitData("auth_date=1700000000&query_id=AAAbbb", initDataBotToken)
	assert.Error(t, err)
}

func TestVerifyInitData_RejectsWrongBotToken(t *testing.T) {
	_, err := verifyInitData(initDataRaw, "999999:OTHER-TOKEN")
	assert.Error(t, err)
}

package tx

import (
	"encoding/json"
	"testing"
)

// FuzzTxUnmarshal tests that arbitrary JSON input does not panic when
// unmarshaled into a Transaction struct.
func FuzzTxUnmarshal(f *testing.F) {
	f.Add([]byte(`{"tx_type":"TRANSFER","sender":"GRS_abc","recipient":"GRS_def","amount":100,"fee":1,"timestamp":1700000000}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`null`))
	f.Add([]byte(`{"tx_type":"GENESIS","sender":"system","recipient":"system","amount":0}`))
	f.Add([]byte(`{"signature":""}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var transaction Transaction
		if err := json.Unmarshal(data, &transaction); err != nil {
			return
		}
		// If unmarshal succeeded, these must not panic.
		transaction.Hash()
		transaction.SigningBytes()
		transaction.Validate()
		transaction.VerifySignatureIfRequired(nil)
	})
}

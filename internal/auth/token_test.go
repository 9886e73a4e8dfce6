/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import "testing"

func TestHashAndVerifyAdminTokenRoundTrips(t *testing.T) {
	hash, err := HashAdminToken("s3cret")
	if err != nil {
		t.Fatalf("HashAdminToken: %v", err)
	}
	if !VerifyAdminToken(hash, "s3cret") {
		t.Fatal("expected matching token to verify")
	}
	if VerifyAdminToken(hash, "wrong") {
		t.Fatal("expected mismatched token to fail verification")
	}
}

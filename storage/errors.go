// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import "errors"

var (
	// ErrStoreLocked indicates another publish already holds the target path.
	ErrStoreLocked = errors.New("index path is locked")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates a persisted index has fewer entries than its
	// metadata claims.
	ErrTruncatedData = errors.New("truncated data")

	// ErrChecksumMismatch indicates persisted entries do not hash to the
	// recorded fingerprint.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

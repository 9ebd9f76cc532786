/*
 Licensed to the Apache Software Foundation (ASF) under one
 or more contributor license agreements.  See the NOTICE file
 distributed with this work for additional information
 regarding copyright ownership.  The ASF licenses this file
 to you under the Apache License, Version 2.0 (the
 "License"); you may not use this file except in compliance
 with the License.  You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package security

import (
	"crypto/hmac"
	"crypto/sha256"
)

// SecretManager mints the password for a container token. It is the sole
// hook the leaf queue core uses for container-token security; minting,
// distributing and verifying the rest of the token is an
// external concern.
type SecretManager interface {
	CreatePassword(identifier []byte) []byte
}

// HMACSecretManager derives passwords as HMAC-SHA256(masterKey, identifier).
// This is the reference implementation used by tests and the demo driver;
// a production resource manager would back SecretManager with a rotating
// master key store instead.
type HMACSecretManager struct {
	masterKey []byte
}

func NewHMACSecretManager(masterKey []byte) *HMACSecretManager {
	return &HMACSecretManager{masterKey: masterKey}
}

func (m *HMACSecretManager) CreatePassword(identifier []byte) []byte {
	mac := hmac.New(sha256.New, m.masterKey)
	mac.Write(identifier)
	return mac.Sum(nil)
}

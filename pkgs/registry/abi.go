package registry

// RegistryABI contains the simplified ABI for the PredictionRegistry
// contract: the four reads, three writes, and one event this client
// consumes.
const RegistryABI = `[
	{
		"inputs": [
			{"internalType": "bytes32", "name": "predictionHash", "type": "bytes32"}
		],
		"name": "getPrediction",
		"outputs": [
			{"internalType": "bytes32", "name": "predictionHashOut", "type": "bytes32"},
			{"internalType": "bytes32", "name": "inputHashOut", "type": "bytes32"},
			{"internalType": "string", "name": "modelVersionOut", "type": "string"},
			{"internalType": "string", "name": "ipfsCidOut", "type": "string"},
			{"internalType": "address", "name": "reporterOut", "type": "address"},
			{"internalType": "uint256", "name": "timestampOut", "type": "uint256"},
			{"internalType": "uint256", "name": "blockNumberOut", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "bytes32", "name": "predictionHash", "type": "bytes32"}
		],
		"name": "isRecorded",
		"outputs": [
			{"internalType": "bool", "name": "", "type": "bool"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "bytes32", "name": "role", "type": "bytes32"},
			{"internalType": "address", "name": "account", "type": "address"}
		],
		"name": "hasRole",
		"outputs": [
			{"internalType": "bool", "name": "", "type": "bool"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "REPORTER_ROLE",
		"outputs": [
			{"internalType": "bytes32", "name": "", "type": "bytes32"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "DEFAULT_ADMIN_ROLE",
		"outputs": [
			{"internalType": "bytes32", "name": "", "type": "bytes32"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "bytes32", "name": "predictionHash", "type": "bytes32"},
			{"internalType": "bytes32", "name": "inputHash", "type": "bytes32"},
			{"internalType": "string", "name": "modelVersion", "type": "string"},
			{"internalType": "string", "name": "ipfsCid", "type": "string"}
		],
		"name": "recordPrediction",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "account", "type": "address"}
		],
		"name": "grantReporter",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "account", "type": "address"}
		],
		"name": "revokeReporter",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "bytes32", "name": "predictionHash", "type": "bytes32"},
			{"indexed": false, "internalType": "bytes32", "name": "inputHash", "type": "bytes32"},
			{"indexed": false, "internalType": "string", "name": "modelVersion", "type": "string"},
			{"indexed": false, "internalType": "string", "name": "ipfsCid", "type": "string"},
			{"indexed": true, "internalType": "address", "name": "reporter", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "timestamp", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "blockNumber", "type": "uint256"}
		],
		"name": "PredictionRecorded",
		"type": "event"
	}
]`

package verifier

// contractABI is the Verifier contract's interface, covering exactly
// the operations and events named in §4.6/§6: attestor registration,
// report submission/voting/challenge, and batch commitment. There is
// no generated abigen binding for this contract in the retrieval
// pack, so Client wires bind.BoundContract to this ABI directly
// instead of a generated wrapper type.
const contractABI = `[
  {"type":"function","name":"submitAttestationReport","stateMutability":"nonpayable",
   "inputs":[{"name":"prover","type":"address"},{"name":"reportBytes","type":"bytes"}],
   "outputs":[]},
  {"type":"function","name":"voteAttestationReport","stateMutability":"nonpayable",
   "inputs":[{"name":"h","type":"bytes32"},{"name":"approve","type":"bool"}],
   "outputs":[]},
  {"type":"function","name":"challengeReport","stateMutability":"nonpayable",
   "inputs":[{"name":"attestor","type":"address"},{"name":"reportBytes","type":"bytes"}],
   "outputs":[]},
  {"type":"function","name":"commitBatch","stateMutability":"nonpayable",
   "inputs":[{"name":"batchId","type":"uint256"},{"name":"poe","type":"bytes"}],
   "outputs":[]},
  {"type":"function","name":"addAttestors","stateMutability":"nonpayable",
   "inputs":[{"name":"attestors","type":"address[]"}],"outputs":[]},
  {"type":"function","name":"removeAttestors","stateMutability":"nonpayable",
   "inputs":[{"name":"attestors","type":"address[]"}],"outputs":[]},
  {"type":"function","name":"changeAttestValiditySeconds","stateMutability":"nonpayable",
   "inputs":[{"name":"seconds_","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"changeOwner","stateMutability":"nonpayable",
   "inputs":[{"name":"newOwner","type":"address"}],"outputs":[]},
  {"type":"function","name":"attestedProvers","stateMutability":"view",
   "inputs":[{"name":"prover","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"attestValiditySeconds","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"attestors","stateMutability":"view",
   "inputs":[{"name":"attestor","type":"address"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"event","name":"RequestAttestation","anonymous":false,
   "inputs":[{"name":"hash","type":"bytes32","indexed":false}]},
  {"type":"event","name":"ProverApproved","anonymous":false,
   "inputs":[{"name":"prover","type":"address","indexed":false}]},
  {"type":"event","name":"AddAttestor","anonymous":false,
   "inputs":[{"name":"attestor","type":"address","indexed":false}]},
  {"type":"event","name":"VoteAttestationReport","anonymous":false,
   "inputs":[{"name":"attestor","type":"address","indexed":false},{"name":"hash","type":"bytes32","indexed":false}]},
  {"type":"event","name":"CommitBatch","anonymous":false,
   "inputs":[{"name":"batchIndex","type":"uint256","indexed":true},{"name":"batchHash","type":"bytes32","indexed":true}]}
]`

package config

// Node kinds recognised in the topology.
const (
	KindSupervisor = "supervisor"
	KindMaster     = "master"
	KindWorker     = "worker"
)

// Defaults applied by LoadFile when a field is left empty.
const (
	DefaultSSHUser        = "root"
	DefaultSSHPort        = 22
	DefaultKeyserverAlias = "homeworld.private"
	DefaultKeytabPattern  = "keytab.%s.crypt"
	DefaultAuthorities    = "authorities"
	DefaultAgeIdentity    = "keys.txt"
)

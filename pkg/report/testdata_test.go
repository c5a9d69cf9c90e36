package report

const qosConfigOutput = `
 ITEM LIST
===========

SWITCH QOS CONFIG
Enable Hardware Caps: FALSE
Enable Hardware Reservations: FALSE
Enable Software Reservations: TRUE
Flags: 0x00
Command get-qos-config succeeded!
`

const queueStats = `
      Current Transmit Info:
        Rate: 10000
        Throttled Packets: 0
        Dropped Packets: 0
      Current Receive Info:
        Rate: DISABLED
        Throttled Packets: 0
        Dropped Packets: 0
`

const portQueueOutput = `
 ITEM LIST
===========


    QOS QUEUE: 2
      Friendly name : SQ1
      Enforce intra-host limit: TRUE
      Transmit Limit: 1000
      Transmit Reservation: 0
      Receive Limit: 0
` + queueStats + `
    QOS QUEUE: 4
      Friendly name : SQ1
      Enforce intra-host limit: TRUE
      Transmit Limit: 1000
      Transmit Reservation: 0
      Receive Limit: 0
` + queueStats + `

  Port: AF4F56A0-802D-4629-88D4-7ECBDB019AE3
    Friendly Name: vSwitch000_External
    ID: 1
Command get-port-queue succeeded!
`

const listQueueOutput = `
 ITEM LIST
===========


  QOS QUEUE: 2
      Friendly name : SQ2
      Enforce intra-host limit: TRUE
      Transmit Limit: 10000
      Transmit Reservation: 0
      Receive Limit: 0
      Transmit Queue Depth: 200 packets
` + queueStats + `


  QOS QUEUE: 1
      Friendly name : SQ1
      Enforce intra-host limit: TRUE
      Transmit Limit: 10000
      Transmit Reservation: 0
      Receive Limit: 0
` + queueStats + `

      Max queue stats since last query:
         Queue Type: Max cap
         Direction: Out
         Bytes received: 0

      Packet events:
         Column 1: Time stamp (100-ns units)
         Column 2: Prerefresh token count

         0: 0: 0: 0: 0: 0: 0: 0: 0: Unknown
         0: 0: 0: 0: 0: 0: 0: 0: 0: Unknown

Command list-queue succeeded!`

const portDumpHeader = `Port Friendly name    : Dynamic Ethernet Switch Port
Switch name           : 5D81E4BB-3056-4BA3-A7A5-469AEAFB366D
`

const portDumpBody = `PortId                : 3
VMQ Weight            : 100
VMQ Usage             : 1
SR-IOV Weight         : 0
SR-IOV Usage          : 0
Port type:            : Synthetic
 Port is Initialized.
 MAC Learning is Disabled.
NIC name           : FFAAQQ66-AA1234-7890-F342-7894AD45ER12--33E0CC89-3DB0-4A5A-7845-123456789ABC
NIC Friendly name  : Network Adapter
MTU                : 1500
MAC address        : AA-BB-CC-DD-EE-FF
`

func portEntry(port, sw, vm string) string {
	return "Port name             : " + port + "\n" +
		portDumpHeader +
		"Switch Friendly name  : " + sw + "\n" +
		portDumpBody +
		"VM name            : " + vm + "\n" +
		"VM ID              : 11223344-1122-4455-6655-ABCDEF123456\n"
}

const diskOutput = `
            Caption DriveType    FreeSpace         Size
            ------- ---------    ---------         ----
            C:       3          37575798784    64317550592
            D:       3          110013030400   254060523520
            Z:       4          1874351206400  7433549180928
`

const ipconfigOutput = `
Ethernet adapter vEthernet (VSWITCH_02):

   Connection-specific DNS Suffix  . :
   Link-local IPv6 Address . . . . . : fdsfsfs
   IPv4 Address. . . . . . . . . . . : 1.112.1.1
   Subnet Mask . . . . . . . . . . . : 255.0.0.0
   Default Gateway . . . . . . . . . :

Ethernet adapter vEthernet (managementvSwitch):

   Connection-specific DNS Suffix  . : www.com
   Link-local IPv6 Address . . . . . : fdsfsfs
   IPv4 Address. . . . . . . . . . . : 1.2.1.1(Preferred)
   Subnet Mask . . . . . . . . . . . : 255.255.0.0
   Default Gateway . . . . . . . . . : fdsf
`

// Get-Item listings of the same file as printed by three different hosts.
var fileMetadataOutputs = []string{
	`
            Directory: D:\VM-Template


            Name           : Base_R88.vhdx
            Length         : 19990052864
            CreationTime   : 7/21/2023 3:49:16 PM
            LastWriteTime  : 7/7/2023 7:44:33 AM
            LastAccessTime : 7/21/2023 3:52:19 PM
            Mode           : -a----
            LinkType       :
            Target         : {}
            VersionInfo    : File:             D:\VM-Template\Base_R88.vhdx
                             InternalName:
                             OriginalFilename:
                             FileVersion:
                             Debug:            False
                             Language:
`,
	`
            Directory: fdsfdssfsf

             Name : Base_W19.vhdx
             if ($_ -is [System.IO.DirectoryInfo]) { return '' }
             if ($_.Attributes -band [System.IO.FileAttributes]::Offline)
             {
                 return '({0})' -f $_.Length
             }
             return $_.Length : 19990052864
             CreationTime                                                            : 7/6/2023 9:41:18 AM
             LastWriteTime                                                           : 7/7/2023 7:44:33 AM
             LastAccessTime                                                          : 8/1/2023 10:19:44 PM
             Mode                                                                    : -a----
             LinkType                                                                :
             Target                                                                  :
             VersionInfo                                                             : File:             gfdgdgggf
                                                                                    InternalName:
                                                                                    Debug:            False
                                                                                    Language:
`,
	`
            Directory: fdsfdsf

            Name : Base_W19.vhdx
                 if ($_ -is [System.IO.DirectoryInfo]) { return '' }
                 if ($_.Attributes -band [System.IO.FileAttributes]::Offline)
                 {
                     return '({0})' -f $_.Length
                 }
                 return $_.Length
                 :
                  19990052864
                 CreationTime : 7/6/2023 9:41:18 AM
                 LastWriteTime
                 :
                 7/7/2023 7:44:33 AM
                 LastAccessTime : 8/1/2023 10:19:44 PM
                 Mode : -a----
                 LinkType :
                 Target :
                 VersionInfo : File:             \\src\img.vhdx
`,
}
